package release

import (
	"github.com/eugenenazirov/signcfg/internal/signing"
)

// Mode identifies how a release build gets signed.
type Mode string

const (
	ModeRelease  Mode = "release"
	ModeDebug    Mode = "debug"
	ModeUnsigned Mode = "unsigned"
)

// Fallback selects the behaviour when no release credentials are configured.
type Fallback string

const (
	FallbackUnsigned Fallback = "unsigned"
	FallbackDebug    Fallback = "debug"
)

// Plan is the resolved signing configuration of a release build.
// StoreFile is absolute for signed modes and empty for ModeUnsigned.
type Plan struct {
	Mode          Mode   `json:"mode" yaml:"mode"`
	StoreFile     string `json:"storeFile,omitempty" yaml:"storeFile,omitempty"`
	StorePassword string `json:"storePassword,omitempty" yaml:"storePassword,omitempty"`
	KeyAlias      string `json:"keyAlias,omitempty" yaml:"keyAlias,omitempty"`
	KeyPassword   string `json:"keyPassword,omitempty" yaml:"keyPassword,omitempty"`
}

// Planner describes the behaviour required from a release signing planner.
type Planner interface {
	Plan(creds signing.Credentials) (Plan, error)
}

// Signed reports whether the plan carries key material.
func (p Plan) Signed() bool {
	return p.Mode == ModeRelease || p.Mode == ModeDebug
}

// Redacted masks non-empty passwords.
func (p Plan) Redacted() Plan {
	if p.StorePassword != "" {
		p.StorePassword = signing.Mask
	}
	if p.KeyPassword != "" {
		p.KeyPassword = signing.Mask
	}
	return p
}
