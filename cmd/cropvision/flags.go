package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
	StatusOnly      bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("CROPVISION_CONFIG", "configs/cropvision.json"),
		"Path to configuration file (env: CROPVISION_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("CROPVISION_CONFIG", "configs/cropvision.json"),
		"Path to configuration file (env: CROPVISION_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CROPVISION_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: CROPVISION_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CROPVISION_LOG_FORMAT", ""),
		"Log format: json, text (env: CROPVISION_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("CROPVISION_DEBUG", false),
		"Enable debug mode (env: CROPVISION_DEBUG)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("CROPVISION_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: CROPVISION_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	flag.BoolVar(&cfg.StatusOnly, "status", false, "Probe service health and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	if cfg.Debug && cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// flagArgs returns the positional arguments (image file paths).
func flagArgs() []string {
	return flag.Args()
}

func printDetailedHelp() {
	fmt.Fprintf(os.Stderr, `cropvision - crop pest and disease identification client

Usage:
  cropvision [flags] [image files...]

With image file arguments, each photograph is optimized and submitted for
identification; results print to stdout as JSON in input order. Without
arguments the process serves metrics until interrupted.

Flags:
`)
	flag.PrintDefaults()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	case "0", "false", "FALSE", "no":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
