package main

import (
	"github.com/alecthomas/kingpin/v2"

	"github.com/eugenenazirov/signcfg/internal/config"
)

const (
	showCommand   = "show"
	checkCommand  = "check"
	injectCommand = "inject"
	serveCommand  = "serve"
)

type cli struct {
	app *kingpin.Application

	configFile string
	envFile    string
	properties string
	moduleDir  string
	encoding   string
	fallback   string
	logLevel   string

	format string

	requireSigning    bool
	requireSigningSet bool

	port           string
	rateLimitRPS   float64
	rateLimitBurst int
}

func newCLI() *cli {
	c := &cli{}
	app := kingpin.New("signcfg", "Resolves Android release-signing configuration from key.properties")
	app.Flag("config", "Path to YAML configuration file").StringVar(&c.configFile)
	app.Flag("env-file", "Path to a dotenv file loaded before reading the environment").StringVar(&c.envFile)
	app.Flag("properties", "Path to the signing properties file (default android/key.properties)").StringVar(&c.properties)
	app.Flag("module-dir", "App module directory that relative storeFile paths resolve against (default android/app)").StringVar(&c.moduleDir)
	app.Flag("encoding", "Properties file encoding: iso-8859-1 or utf-8").StringVar(&c.encoding)
	app.Flag("fallback", "Signing when no release keystore is configured: unsigned or debug").StringVar(&c.fallback)
	app.Flag("log-level", "Log level (debug, info, warn, error)").StringVar(&c.logLevel)

	show := app.Command(showCommand, "Print the resolved signing plan without secrets").Default()
	show.Flag("format", "Output format: json or yaml").StringVar(&c.format)

	check := app.Command(checkCommand, "Verify the signing plan; exits non-zero on failure")
	check.Flag("require-signing", "Fail unless a release keystore is configured").
		IsSetByUser(&c.requireSigningSet).
		BoolVar(&c.requireSigning)

	app.Command(injectCommand, "Print Android Gradle Plugin injected-signing arguments, one per line")

	serve := app.Command(serveCommand, "Serve signing status over HTTP")
	serve.Flag("port", "HTTP port exposed by the service").StringVar(&c.port)
	serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64Var(&c.rateLimitRPS)
	serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").IntVar(&c.rateLimitBurst)

	c.app = app
	return c
}

func (c *cli) parse(args []string) (string, error) {
	return c.app.Parse(args)
}

// overrides converts parsed flags into config overrides. Flags left at their
// zero value do not override lower-precedence sources.
func (c *cli) overrides() *config.CLIOverrides {
	o := &config.CLIOverrides{
		ConfigFile: c.configFile,
		EnvFile:    c.envFile,
	}

	o.PropertiesPath = optional(c.properties)
	o.ModuleDir = optional(c.moduleDir)
	o.Encoding = optional(c.encoding)
	o.Fallback = optional(c.fallback)
	o.LogLevel = optional(c.logLevel)
	o.Format = optional(c.format)
	o.Port = optional(c.port)

	if c.requireSigningSet {
		o.RequireSigning = &c.requireSigning
	}

	if c.rateLimitRPS >= 0 {
		o.RateLimitRPS = &c.rateLimitRPS
	}

	if c.rateLimitBurst >= 0 {
		o.RateLimitBurst = &c.rateLimitBurst
	}

	return o
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
