// Command pitwall receives F1 UDP telemetry from one or more rigs, streams it
// to WebSocket subscribers and uploads it in batches.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
	"github.com/c360/pitwall/metric"
	"github.com/c360/pitwall/service"
)

// Build information, overridden with -ldflags.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "pitwall"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if stderrors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		code := exitCode(err)
		slog.Error("Application failed", "error", err, "exit_code", code)
		os.Exit(code)
	}
}

// exitCode maps a run error to a process status: 2 for bad configuration,
// 75 (EX_TEMPFAIL) when a restart may succeed, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsFatal(err):
		return 1
	case errors.IsInvalid(err):
		return 2
	case errors.IsTransient(err):
		return 75
	default:
		return 1
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s (built %s)\n", appName, Version, BuildTime)
		return nil
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	logger := setupLogger(stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("Configuration is valid", "config_path", cli.ConfigPath, "sources", len(cfg.Sources))
		return nil
	}

	logger.Info("Starting pitwall", "build_time", BuildTime, "config_path", cli.ConfigPath)
	logger.Debug("Effective configuration", "config", cfg.String())

	svc, err := service.New(*cfg, service.Deps{
		Logger:          logger,
		Registry:        metric.NewMetricsRegistry(),
		Version:         Version,
		ShutdownTimeout: cli.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	if err := svc.Run(ctx); err != nil {
		return fmt.Errorf("run service: %w", err)
	}
	logger.Info("Pitwall shutdown complete")
	return nil
}

// loadConfig layers defaults, the config file, PITWALL_* env and flags.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg, err := config.NewLoader().LoadFile(cli.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	if cli.MetricsListen != "" {
		cfg.Metrics.Listen = cli.MetricsListen
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
