package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/envcheck/internal/application"
	"github.com/eugenenazirov/envcheck/internal/config"
	"github.com/eugenenazirov/envcheck/internal/logging"
	"github.com/eugenenazirov/envcheck/internal/settings"
)

const envTemplate = ".env.template"

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("envcheck", "Resolves application settings from platform secrets, the environment and .env files, and reports missing required ones")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	var envFileSet, secretsSet, overrideSet bool
	envFile := kingpinApp.Flag("env-file", "Path to the local .env file (empty disables it)").IsSetByUser(&envFileSet).String()
	secretsPath := kingpinApp.Flag("secrets", "Path to the platform secrets YAML file or key-per-file directory (empty disables it)").IsSetByUser(&secretsSet).String()
	overrideEnv := kingpinApp.Flag("override-env", "Let .env values take precedence over the process environment").IsSetByUser(&overrideSet).Bool()

	checkCmd := kingpinApp.Command("check", "Check required settings and print all resolved settings").Default()
	strict := checkCmd.Flag("strict", "Exit with status 1 when required settings are missing").Bool()

	serveCmd := kingpinApp.Command("serve", "Serve settings status over HTTP")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if envFileSet {
		overrides.EnvFile = envFile
	}

	if secretsSet {
		overrides.SecretsPath = secretsPath
	}

	if overrideSet {
		overrides.OverrideEnv = overrideEnv
	}

	if *port != "" {
		overrides.Port = port
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		kingpinApp.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case checkCmd.FullCommand():
		resolver := application.NewResolver(cfg, logger)
		if code := runCheck(os.Stdout, resolver, *strict); code != 0 {
			_ = logger.Sync()
			os.Exit(code)
		}

	case serveCmd.FullCommand():
		app, err := application.New(cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize application", zap.Error(err))
		}

		if err := app.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}

		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	}
}

// runCheck prints the required-settings report followed by every resolved
// setting, or remediation steps. It returns the process exit code.
func runCheck(w io.Writer, resolver *settings.Resolver, strict bool) int {
	fmt.Fprintln(w, "Environment Variable Check")
	fmt.Fprintln(w, strings.Repeat("=", 40))

	if !resolver.CheckRequired(w) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Environment setup incomplete")
		fmt.Fprintf(w, "Please run: cp %s .env\n", envTemplate)
		fmt.Fprintln(w, "Then edit .env with your actual API keys")
		if strict {
			return 1
		}
		return 0
	}

	all, err := resolver.GetAll()
	if err != nil {
		fmt.Fprintf(w, "\nfailed to resolve settings: %v\n", err)
		return 1
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	settings.WriteSettings(w, all)
	return 0
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("shutting down server", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
