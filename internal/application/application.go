package application

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/signcfg/internal/api"
	"github.com/eugenenazirov/signcfg/internal/config"
	"github.com/eugenenazirov/signcfg/internal/release"
	"github.com/eugenenazirov/signcfg/internal/signing"
	"github.com/eugenenazirov/signcfg/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	handler *api.Handler
	logger  *zap.Logger
	server  *http.Server
	path    string
}

// Components holds the pieces shared by the CLI commands and the HTTP service.
type Components struct {
	Loader         *signing.Loader
	Planner        release.Planner
	PropertiesPath string
	ModuleDir      string
}

// NewComponents builds the loader and planner described by cfg.
func NewComponents(cfg config.Config) (Components, error) {
	enc, err := signing.ParseEncoding(cfg.Encoding)
	if err != nil {
		return Components{}, err
	}

	propertiesPath, moduleDir := ResolveLayout(cfg.PropertiesPath, cfg.ModuleDir)

	planner, err := release.New(moduleDir, cfg.Fallback)
	if err != nil {
		return Components{}, fmt.Errorf("failed to create planner: %w", err)
	}

	return Components{
		Loader:         signing.NewLoader(signing.WithEncoding(enc)),
		Planner:        planner,
		PropertiesPath: propertiesPath,
		ModuleDir:      moduleDir,
	}, nil
}

// New initializes the application with all dependencies from the provided
// configuration and performs the initial load of the properties file.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	components, err := NewComponents(cfg)
	if err != nil {
		return nil, err
	}

	store := storage.NewMemoryStorage()
	handler := api.NewHandler(components.Loader, components.Planner, store, components.PropertiesPath)

	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	app := &App{
		storage: store,
		handler: handler,
		logger:  logger,
		server:  NewServer(cfg, apiRouter),
		path:    components.PropertiesPath,
	}
	if _, err := app.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load signing properties: %w", err)
	}
	return app, nil
}

// Reload re-reads the properties file and replaces the served snapshot. On
// failure the previous snapshot stays in place.
func (a *App) Reload() (storage.Snapshot, error) {
	snapshot, err := a.handler.Reload()
	if err != nil {
		return storage.Snapshot{}, err
	}
	a.logger.Info("signing properties loaded",
		zap.String("path", snapshot.Source.Path),
		zap.Bool("found", snapshot.Source.Found),
		zap.Bool("release_signing", !snapshot.Source.Credentials.IsEmpty()),
		zap.Strings("unrecognized_keys", snapshot.Source.UnrecognizedKeys),
	)
	return snapshot, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr), zap.String("properties", a.path))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// ResolveLayout locates a relative properties path by walking up from the
// working directory, so the tool works from anywhere inside the project. A
// relative module directory is anchored to the same ancestor as the properties
// file. When no ancestor contains the properties file both paths are returned
// unchanged.
func ResolveLayout(propertiesPath, moduleDir string) (string, string) {
	if filepath.IsAbs(propertiesPath) {
		return propertiesPath, moduleDir
	}

	resolved, root, err := resolveProjectPath(propertiesPath)
	if err != nil {
		return propertiesPath, moduleDir
	}
	if moduleDir != "" && !filepath.IsAbs(moduleDir) {
		moduleDir = filepath.Join(root, moduleDir)
	}
	return resolved, moduleDir
}

// resolveProjectPath locates a file or directory relative to the project root
// by walking up the directory tree. It returns the match and the ancestor it
// was found under.
func resolveProjectPath(relative string) (string, string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", "", fmt.Errorf("unable to locate %s", relative)
}
