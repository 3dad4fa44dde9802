package application

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/envcheck/internal/api"
	"github.com/eugenenazirov/envcheck/internal/config"
	"github.com/eugenenazirov/envcheck/internal/settings"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	resolver *settings.Resolver
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// NewResolver builds the standard provider chain described by cfg. A nil
// logger discards output.
func NewResolver(cfg config.Config, logger *zap.Logger) *settings.Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := settings.DefaultProviders(settings.ProviderOptions{
		SecretsPath: cfg.SecretsPath,
		EnvFile:     cfg.EnvFile,
		OverrideEnv: cfg.OverrideEnv,
	}, logger)

	resolver := settings.NewResolver(logger, providers...)
	logger.Debug("settings resolver ready", zap.Strings("providers", resolver.Providers()))
	return resolver
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	resolver := NewResolver(cfg, logger)
	handler := api.NewHandler(resolver)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		resolver: resolver,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler mounts the API under /api/ and answers everything else with 404.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
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

// Start binds the listener and serves in a goroutine. Bind errors are
// returned synchronously.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}

	report := a.resolver.Check()
	if !report.OK() {
		a.logger.Warn("serving with incomplete configuration", zap.Strings("missing", report.Missing))
	}

	a.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Resolver returns the settings resolver shared by the handlers.
func (a *App) Resolver() *settings.Resolver {
	return a.resolver
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
