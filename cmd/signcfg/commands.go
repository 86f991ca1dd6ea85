package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/signcfg/internal/application"
	"github.com/eugenenazirov/signcfg/internal/config"
	"github.com/eugenenazirov/signcfg/internal/release"
)

var errReleaseSigningRequired = errors.New("release signing required but no keystore is configured")

// runCommand executes one of the non-serving subcommands, writing its output to out.
func runCommand(name string, cfg config.Config, logger *zap.Logger, out io.Writer) error {
	components, err := application.NewComponents(cfg)
	if err != nil {
		return err
	}

	src, err := components.Loader.Read(components.PropertiesPath)
	if err != nil {
		return fmt.Errorf("read signing properties: %w", err)
	}
	if len(src.UnrecognizedKeys) > 0 {
		logger.Debug("ignoring unrecognized keys", zap.String("path", src.Path), zap.Strings("keys", src.UnrecognizedKeys))
	}

	plan, err := components.Planner.Plan(src.Credentials)
	if err != nil {
		return fmt.Errorf("plan release signing: %w", err)
	}
	if src.Credentials.IsEmpty() {
		logger.Info("no release keystore configured",
			zap.String("path", src.Path),
			zap.Bool("found", src.Found),
			zap.String("mode", string(plan.Mode)),
		)
	}

	switch name {
	case showCommand:
		return writeReport(out, cfg.Format, release.NewReport(src, plan))
	case checkCommand:
		return check(out, plan, cfg.RequireSigning, logger)
	case injectCommand:
		for _, arg := range release.InjectedArgs(plan) {
			if _, err := fmt.Fprintln(out, arg); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func check(out io.Writer, plan release.Plan, requireSigning bool, logger *zap.Logger) error {
	if requireSigning && plan.Mode != release.ModeRelease {
		return errReleaseSigningRequired
	}
	if err := release.Verify(plan); err != nil {
		return err
	}

	logger.Info("signing configuration verified", zap.String("mode", string(plan.Mode)))
	_, err := fmt.Fprintf(out, "ok: %s\n", plan.Mode)
	return err
}

func writeReport(out io.Writer, format string, report release.Report) error {
	switch format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(out)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
}
