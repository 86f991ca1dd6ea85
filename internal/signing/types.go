package signing

// Recognized key.properties entries.
const (
	KeyStoreFile     = "storeFile"
	KeyStorePassword = "storePassword"
	KeyAlias         = "keyAlias"
	KeyKeyPassword   = "keyPassword"
)

// Mask replaces secret values in redacted output.
const Mask = "********"

// Credentials holds the release-signing entries of a properties file.
// A nil field means the entry was absent. When StoreFile is nil every other
// field is nil as well.
type Credentials struct {
	StoreFile     *string `json:"storeFile,omitempty" yaml:"storeFile,omitempty"`
	StorePassword *string `json:"storePassword,omitempty" yaml:"storePassword,omitempty"`
	KeyAlias      *string `json:"keyAlias,omitempty" yaml:"keyAlias,omitempty"`
	KeyPassword   *string `json:"keyPassword,omitempty" yaml:"keyPassword,omitempty"`
}

// Source describes one read of a properties path.
type Source struct {
	Path             string
	Found            bool
	Credentials      Credentials
	UnrecognizedKeys []string
}

// IsEmpty reports whether no release signing is configured.
func (c Credentials) IsEmpty() bool {
	return c.StoreFile == nil
}

// Equal compares field values rather than pointers.
func (c Credentials) Equal(other Credentials) bool {
	return equalOptional(c.StoreFile, other.StoreFile) &&
		equalOptional(c.StorePassword, other.StorePassword) &&
		equalOptional(c.KeyAlias, other.KeyAlias) &&
		equalOptional(c.KeyPassword, other.KeyPassword)
}

// Redacted returns a copy with both passwords masked. Absent passwords stay absent.
func (c Credentials) Redacted() Credentials {
	out := c.Clone()
	if out.StorePassword != nil {
		out.StorePassword = stringPtr(Mask)
	}
	if out.KeyPassword != nil {
		out.KeyPassword = stringPtr(Mask)
	}
	return out
}

// Clone returns a deep copy.
func (c Credentials) Clone() Credentials {
	return Credentials{
		StoreFile:     cloneOptional(c.StoreFile),
		StorePassword: cloneOptional(c.StorePassword),
		KeyAlias:      cloneOptional(c.KeyAlias),
		KeyPassword:   cloneOptional(c.KeyPassword),
	}
}

// Clone returns a deep copy.
func (s Source) Clone() Source {
	out := s
	out.Credentials = s.Credentials.Clone()
	if s.UnrecognizedKeys != nil {
		out.UnrecognizedKeys = append([]string(nil), s.UnrecognizedKeys...)
	}
	return out
}

// Value dereferences an optional field, returning "" when absent.
func Value(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneOptional(v *string) *string {
	if v == nil {
		return nil
	}
	return stringPtr(*v)
}

func stringPtr(v string) *string {
	return &v
}
