package signing

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/magiconair/properties"
)

func writeProperties(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "key.properties")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsEmptyCredentials(t *testing.T) {
	t.Parallel()

	paths := []string{
		filepath.Join(t.TempDir(), "key.properties"),
		filepath.Join(t.TempDir(), "nested", "dir", "key.properties"),
	}

	for _, path := range paths {
		creds, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) returned error: %v", path, err)
		}
		if !creds.Equal(Credentials{}) || !creds.IsEmpty() {
			t.Fatalf("expected empty credentials, got %+v", creds)
		}
	}
}

func TestLoadFullCredentials(t *testing.T) {
	t.Parallel()

	path := writeProperties(t, "storeFile=a.jks\nstorePassword=p\nkeyAlias=k\nkeyPassword=q\n")

	creds, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := map[string]*string{
		"a.jks": creds.StoreFile,
		"p":     creds.StorePassword,
		"k":     creds.KeyAlias,
		"q":     creds.KeyPassword,
	}
	for expected, got := range want {
		if got == nil || *got != expected {
			t.Fatalf("expected %q, got %v", expected, got)
		}
	}
}

func TestLoadBlankOrAbsentStoreFileIgnoresOtherKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "Absent", content: "storePassword=p\nkeyAlias=k\nkeyPassword=q\n"},
		{name: "Empty", content: "storeFile=\nstorePassword=p\nkeyAlias=k\nkeyPassword=q\n"},
		{name: "Whitespace", content: "storeFile=   \t\nstorePassword=p\nkeyAlias=k\n"},
		{name: "OnlyComments", content: "# storeFile=a.jks\n! keyAlias=k\n"},
		{name: "EmptyFile", content: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeProperties(t, tc.content)
			src, err := NewLoader().Read(path)
			if err != nil {
				t.Fatalf("Read returned error: %v", err)
			}
			if !src.Found {
				t.Fatalf("expected file to be reported as found")
			}
			if !src.Credentials.Equal(Credentials{}) {
				t.Fatalf("expected all fields absent, got %+v", src.Credentials)
			}
		})
	}
}

func TestLoadPartialCredentialsKeepsAbsentFields(t *testing.T) {
	t.Parallel()

	path := writeProperties(t, "storeFile=upload.jks\nkeyAlias=upload\n")

	creds, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if Value(creds.StoreFile) != "upload.jks" || Value(creds.KeyAlias) != "upload" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	if creds.StorePassword != nil || creds.KeyPassword != nil {
		t.Fatalf("expected absent passwords, got %+v", creds)
	}
}

func TestLoadJavaPropertiesSyntax(t *testing.T) {
	t.Parallel()

	content := "# release keystore\n" +
		"storeFile : /keys/upload.jks\n" +
		"storePassword   s3cr=t\n" +
		"keyAlias=up\\\n" +
		"    load\n" +
		"keyPassword=\\u0071\n"
	path := writeProperties(t, content)

	creds, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if got := Value(creds.StoreFile); got != "/keys/upload.jks" {
		t.Fatalf("unexpected store file %q", got)
	}
	if got := Value(creds.StorePassword); got != "s3cr=t" {
		t.Fatalf("unexpected store password %q", got)
	}
	if got := Value(creds.KeyAlias); got != "upload" {
		t.Fatalf("unexpected key alias %q", got)
	}
	if got := Value(creds.KeyPassword); got != "q" {
		t.Fatalf("unexpected key password %q", got)
	}
}

func TestLoadDoesNotExpandReferences(t *testing.T) {
	t.Parallel()

	path := writeProperties(t, "storeFile=a.jks\nstorePassword=${HOME}\nkeyPassword=${missing\n")

	creds, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := Value(creds.StorePassword); got != "${HOME}" {
		t.Fatalf("expected literal value, got %q", got)
	}
}

func TestReadReportsUnrecognizedKeys(t *testing.T) {
	t.Parallel()

	path := writeProperties(t, "storeFile=a.jks\nzeta=1\nalpha=2\n")

	src, err := NewLoader().Read(path)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if want := []string{"alpha", "zeta"}; !slices.Equal(src.UnrecognizedKeys, want) {
		t.Fatalf("expected %v, got %v", want, src.UnrecognizedKeys)
	}
	if src.Path != path {
		t.Fatalf("expected path %s, got %s", path, src.Path)
	}
}

func TestLoadEncoding(t *testing.T) {
	t.Parallel()

	t.Run("ISO88591Default", func(t *testing.T) {
		path := writeProperties(t, "storeFile=a.jks\nstorePassword=caf\xe9\n")
		creds, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if got := Value(creds.StorePassword); got != "café" {
			t.Fatalf("expected café, got %q", got)
		}
	})

	t.Run("UTF8", func(t *testing.T) {
		path := writeProperties(t, "storeFile=a.jks\nstorePassword=café\n")
		creds, err := NewLoader(WithEncoding(properties.UTF8)).Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if got := Value(creds.StorePassword); got != "café" {
			t.Fatalf("expected café, got %q", got)
		}
	})
}

func TestLoadMalformedContentReturnsParseError(t *testing.T) {
	t.Parallel()

	path := writeProperties(t, "storeFile=a.jks\nstorePassword=\\uZZZZ\n")

	_, err := Load(path)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestLoadUnreadablePathReturnsReadError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(dir)
	if !errors.Is(err, ErrConfigRead) {
		t.Fatalf("expected ErrConfigRead, got %v", err)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	t.Parallel()

	path := writeProperties(t, "storeFile=a.jks\nstorePassword=p\nkeyAlias=k\n")
	loader := NewLoader()

	first, err := loader.Load(path)
	if err != nil {
		t.Fatalf("first Load returned error: %v", err)
	}
	second, err := loader.Load(path)
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("expected equal results, got %+v and %+v", first, second)
	}
}

func TestParseEncoding(t *testing.T) {
	t.Parallel()

	valid := map[string]properties.Encoding{
		"":           properties.ISO_8859_1,
		"ISO-8859-1": properties.ISO_8859_1,
		"latin1":     properties.ISO_8859_1,
		"utf-8":      properties.UTF8,
		" UTF8 ":     properties.UTF8,
	}
	for name, want := range valid {
		got, err := ParseEncoding(name)
		if err != nil {
			t.Fatalf("ParseEncoding(%q) returned error: %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseEncoding(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := ParseEncoding("utf-16"); !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("expected ErrUnknownEncoding, got %v", err)
	}
}
