package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/signcfg/internal/release"
	"github.com/eugenenazirov/signcfg/internal/signing"
)

const (
	defaultPropertiesPath = "android/key.properties"
	defaultModuleDir      = "android/app"
	defaultFormat         = "json"
	defaultLogLevel       = "info"
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Output formats accepted by the show command.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	PropertiesPath       string
	ModuleDir            string
	Encoding             string
	Fallback             release.Fallback
	RequireSigning       bool
	Format               string
	LogLevel             string
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Properties           string        `yaml:"properties"`
	ModuleDir            string        `yaml:"module_dir"`
	Encoding             string        `yaml:"encoding"`
	Fallback             string        `yaml:"fallback"`
	RequireSigning       *bool         `yaml:"require_signing"`
	Format               string        `yaml:"format"`
	LogLevel             string        `yaml:"log_level"`
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	PropertiesPath *string
	ModuleDir      *string
	Encoding       *string
	Fallback       *string
	RequireSigning *bool
	Format         *string
	LogLevel       *string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Variables already present in the environment win over the env file.
	if overrides != nil && overrides.EnvFile != "" {
		if err := godotenv.Load(overrides.EnvFile); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	applyEnvConfig(&cfg)

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := normalizeConfig(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		PropertiesPath:       defaultPropertiesPath,
		ModuleDir:            defaultModuleDir,
		Encoding:             signing.EncodingISO88591,
		Fallback:             release.FallbackUnsigned,
		Format:               defaultFormat,
		LogLevel:             defaultLogLevel,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	setString(&cfg.PropertiesPath, yamlCfg.Properties)
	setString(&cfg.ModuleDir, yamlCfg.ModuleDir)
	setString(&cfg.Encoding, yamlCfg.Encoding)
	setString(&cfg.Format, yamlCfg.Format)
	setString(&cfg.LogLevel, yamlCfg.LogLevel)
	setString(&cfg.Port, yamlCfg.Port)

	if yamlCfg.Fallback != "" {
		cfg.Fallback = release.Fallback(yamlCfg.Fallback)
	}

	if yamlCfg.RequireSigning != nil {
		cfg.RequireSigning = *yamlCfg.RequireSigning
	}

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.target = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	setString(&cfg.PropertiesPath, envValue("SIGNCFG_PROPERTIES"))
	setString(&cfg.ModuleDir, envValue("SIGNCFG_MODULE_DIR"))
	setString(&cfg.Encoding, envValue("SIGNCFG_ENCODING"))
	setString(&cfg.Format, envValue("SIGNCFG_FORMAT"))
	setString(&cfg.LogLevel, envValue("SIGNCFG_LOG_LEVEL"))
	setString(&cfg.Port, envValue("PORT"))

	if fallback := envValue("SIGNCFG_FALLBACK"); fallback != "" {
		cfg.Fallback = release.Fallback(fallback)
	}

	if require := envValue("SIGNCFG_REQUIRE_SIGNING"); require != "" {
		if value, err := strconv.ParseBool(require); err == nil {
			cfg.RequireSigning = value
		}
	}

	if rps := envValue("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := envValue("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	setOptional(&cfg.PropertiesPath, overrides.PropertiesPath)
	setOptional(&cfg.ModuleDir, overrides.ModuleDir)
	setOptional(&cfg.Encoding, overrides.Encoding)
	setOptional(&cfg.Format, overrides.Format)
	setOptional(&cfg.LogLevel, overrides.LogLevel)
	setOptional(&cfg.Port, overrides.Port)

	if overrides.Fallback != nil && *overrides.Fallback != "" {
		cfg.Fallback = release.Fallback(*overrides.Fallback)
	}

	if overrides.RequireSigning != nil {
		cfg.RequireSigning = *overrides.RequireSigning
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// normalizeConfig validates the final configuration and canonicalises enum values.
func normalizeConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.PropertiesPath) == "" {
		return fmt.Errorf("properties path cannot be empty")
	}

	if _, err := signing.ParseEncoding(cfg.Encoding); err != nil {
		return err
	}

	fallback, err := release.ParseFallback(string(cfg.Fallback))
	if err != nil {
		return err
	}
	cfg.Fallback = fallback

	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format != FormatJSON && cfg.Format != FormatYAML {
		return fmt.Errorf("format must be %q or %q, got %q", FormatJSON, FormatYAML, cfg.Format)
	}

	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	return nil
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func setOptional(target *string, value *string) {
	if value != nil && *value != "" {
		*target = *value
	}
}
