package signing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/magiconair/properties"
)

// Encoding names accepted by ParseEncoding.
const (
	EncodingISO88591 = "iso-8859-1"
	EncodingUTF8     = "utf-8"
)

var recognizedKeys = map[string]struct{}{
	KeyStoreFile:     {},
	KeyStorePassword: {},
	KeyAlias:         {},
	KeyKeyPassword:   {},
}

// Loader reads signing credentials from properties files.
type Loader struct {
	encoding properties.Encoding
}

// LoaderOption configures Loader behaviour.
type LoaderOption func(*Loader)

// WithEncoding sets the byte encoding of the properties file.
func WithEncoding(enc properties.Encoding) LoaderOption {
	return func(l *Loader) {
		l.encoding = enc
	}
}

// NewLoader constructs a Loader. Files are decoded as ISO-8859-1 unless
// WithEncoding says otherwise, matching java.util.Properties.load(InputStream).
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{encoding: properties.ISO_8859_1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ParseEncoding maps an encoding name to its properties.Encoding.
func ParseEncoding(name string) (properties.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingISO88591, "latin1", "latin-1":
		return properties.ISO_8859_1, nil
	case EncodingUTF8, "utf8":
		return properties.UTF8, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownEncoding, name)
	}
}

// Load reads path with the default loader.
func Load(path string) (Credentials, error) {
	return NewLoader().Load(path)
}

// Load returns the credentials stored at path. A missing file is not an error.
func (l *Loader) Load(path string) (Credentials, error) {
	src, err := l.Read(path)
	if err != nil {
		return Credentials{}, err
	}
	return src.Credentials, nil
}

// Read is Load plus metadata about the file that was read.
func (l *Loader) Read(path string) (Source, error) {
	src := Source{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return src, nil
		}
		return Source{}, fmt.Errorf("%w: %w", ErrConfigRead, err)
	}

	loader := properties.Loader{Encoding: l.encoding, DisableExpansion: true}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}

	src.Found = true
	src.Credentials = extractCredentials(props)
	src.UnrecognizedKeys = unrecognizedKeys(props)
	return src, nil
}

func extractCredentials(props *properties.Properties) Credentials {
	storeFile, ok := props.Get(KeyStoreFile)
	if !ok || strings.TrimSpace(storeFile) == "" {
		return Credentials{}
	}

	return Credentials{
		StoreFile:     stringPtr(storeFile),
		StorePassword: lookup(props, KeyStorePassword),
		KeyAlias:      lookup(props, KeyAlias),
		KeyPassword:   lookup(props, KeyKeyPassword),
	}
}

func lookup(props *properties.Properties, key string) *string {
	if v, ok := props.Get(key); ok {
		return stringPtr(v)
	}
	return nil
}

func unrecognizedKeys(props *properties.Properties) []string {
	var keys []string
	for _, key := range props.Keys() {
		if _, ok := recognizedKeys[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
