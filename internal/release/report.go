package release

import (
	"github.com/eugenenazirov/signcfg/internal/signing"
)

// Report is a secret-free summary of a plan and the file it came from.
type Report struct {
	Mode              Mode     `json:"mode" yaml:"mode"`
	Source            string   `json:"source" yaml:"source"`
	Found             bool     `json:"found" yaml:"found"`
	StoreFile         string   `json:"storeFile,omitempty" yaml:"storeFile,omitempty"`
	KeyAlias          string   `json:"keyAlias,omitempty" yaml:"keyAlias,omitempty"`
	StorePasswordSet  bool     `json:"storePasswordSet" yaml:"storePasswordSet"`
	KeyPasswordSet    bool     `json:"keyPasswordSet" yaml:"keyPasswordSet"`
	UnrecognizedKeys  []string `json:"unrecognizedKeys,omitempty" yaml:"unrecognizedKeys,omitempty"`
	Verified          bool     `json:"verified" yaml:"verified"`
	VerificationError string   `json:"verificationError,omitempty" yaml:"verificationError,omitempty"`
}

// NewReport summarises plan and runs Verify against it.
func NewReport(src signing.Source, plan Plan) Report {
	report := Report{
		Mode:             plan.Mode,
		Source:           src.Path,
		Found:            src.Found,
		StoreFile:        plan.StoreFile,
		KeyAlias:         plan.KeyAlias,
		StorePasswordSet: plan.StorePassword != "",
		KeyPasswordSet:   plan.KeyPassword != "",
		UnrecognizedKeys: src.UnrecognizedKeys,
		Verified:         true,
	}
	if err := Verify(plan); err != nil {
		report.Verified = false
		report.VerificationError = err.Error()
	}
	return report
}
