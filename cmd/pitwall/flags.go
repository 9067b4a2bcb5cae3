package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// CLIConfig holds command-line configuration. Empty strings defer to the
// config file.
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	MetricsListen   string
	ShutdownTimeout time.Duration
	Validate        bool
	ShowVersion     bool
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&cfg.ConfigPath, "config", "c",
		getEnv("PITWALL_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: PITWALL_CONFIG)")
	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("PITWALL_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: PITWALL_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("PITWALL_LOG_FORMAT", ""),
		"Log format: json, text (env: PITWALL_LOG_FORMAT)")
	fs.StringVar(&cfg.MetricsListen, "metrics-listen",
		getEnv("PITWALL_METRICS_LISTEN", ""),
		"Ops server address for /metrics, /health and /snapshot (env: PITWALL_METRICS_LISTEN)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("PITWALL_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: PITWALL_SHUTDOWN_TIMEOUT)")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.BoolVarP(&cfg.ShowVersion, "version", "v", false, "Show version information")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "%s - F1 telemetry gateway\n\nUsage: %s [options]\n\nOptions:\n", appName, appName)
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(stderr, `
Examples:
  # Run with a config file
  %[1]s --config=/etc/pitwall/pitwall.yaml

  # Debug logging in a terminal
  %[1]s -c pitwall.yaml --log-level=debug --log-format=text

  # Check a config file
  %[1]s -c pitwall.yaml --validate
`, appName)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, validateFlags(cfg)
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}
	if cfg.ConfigPath == "" {
		return fmt.Errorf("--config is required")
	}
	if cfg.LogLevel != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
