package release

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eugenenazirov/signcfg/internal/signing"
)

// Well-known values of the keystore the Android tooling generates for debug builds.
const (
	debugKeystoreName  = "debug.keystore"
	debugStorePassword = "android"
	debugKeyAlias      = "androiddebugkey"
	debugKeyPassword   = "android"
)

const injectedPrefix = "-Pandroid.injected.signing."

type planner struct {
	moduleDir       string
	fallback        Fallback
	androidUserHome func() (string, error)
}

// Option configures planner behaviour.
type Option func(*planner)

// WithAndroidUserHome overrides how the Android user directory (normally
// ~/.android) is located, primarily for tests.
func WithAndroidUserHome(fn func() (string, error)) Option {
	return func(p *planner) {
		p.androidUserHome = fn
	}
}

// ParseFallback validates a fallback name. An empty name means FallbackUnsigned.
func ParseFallback(name string) (Fallback, error) {
	switch Fallback(strings.ToLower(strings.TrimSpace(name))) {
	case "", FallbackUnsigned:
		return FallbackUnsigned, nil
	case FallbackDebug:
		return FallbackDebug, nil
	default:
		return "", fmt.Errorf("%w, got %q", ErrInvalidFallback, name)
	}
}

// New creates a Planner that resolves relative keystore paths against moduleDir,
// the way Gradle's file() does inside the app module.
func New(moduleDir string, fallback Fallback, opts ...Option) (Planner, error) {
	fb, err := ParseFallback(string(fallback))
	if err != nil {
		return nil, err
	}

	p := &planner{
		moduleDir:       moduleDir,
		fallback:        fb,
		androidUserHome: defaultAndroidUserHome,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *planner) Plan(creds signing.Credentials) (Plan, error) {
	if creds.IsEmpty() {
		return p.fallbackPlan()
	}

	storeFile, err := p.resolve(*creds.StoreFile)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Mode:          ModeRelease,
		StoreFile:     storeFile,
		StorePassword: signing.Value(creds.StorePassword),
		KeyAlias:      signing.Value(creds.KeyAlias),
		KeyPassword:   signing.Value(creds.KeyPassword),
	}, nil
}

func (p *planner) fallbackPlan() (Plan, error) {
	if p.fallback != FallbackDebug {
		return Plan{Mode: ModeUnsigned}, nil
	}

	dir, err := p.androidUserHome()
	if err != nil {
		return Plan{}, fmt.Errorf("locate debug keystore: %w", err)
	}

	return Plan{
		Mode:          ModeDebug,
		StoreFile:     filepath.Join(dir, debugKeystoreName),
		StorePassword: debugStorePassword,
		KeyAlias:      debugKeyAlias,
		KeyPassword:   debugKeyPassword,
	}, nil
}

func (p *planner) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.moduleDir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve keystore path: %w", err)
	}
	return abs, nil
}

func defaultAndroidUserHome() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("ANDROID_USER_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".android"), nil
}

// Verify checks that a signed plan can actually be used to sign.
// Unsigned plans always verify.
func Verify(plan Plan) error {
	if !plan.Signed() {
		return nil
	}

	info, err := os.Stat(plan.StoreFile)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrStoreFileMissing, plan.StoreFile)
	}

	var missing []string
	if plan.StorePassword == "" {
		missing = append(missing, signing.KeyStorePassword)
	}
	if plan.KeyAlias == "" {
		missing = append(missing, signing.KeyAlias)
	}
	if plan.KeyPassword == "" {
		missing = append(missing, signing.KeyKeyPassword)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// InjectedArgs renders a signed plan as Gradle command-line project properties
// that override the module's signing config. Unsigned plans produce none.
func InjectedArgs(plan Plan) []string {
	if !plan.Signed() {
		return nil
	}
	return []string{
		injectedPrefix + "store.file=" + plan.StoreFile,
		injectedPrefix + "store.password=" + plan.StorePassword,
		injectedPrefix + "key.alias=" + plan.KeyAlias,
		injectedPrefix + "key.password=" + plan.KeyPassword,
	}
}
