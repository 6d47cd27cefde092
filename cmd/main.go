// Package main is the entry point for poolwatch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/poolwatch/poolwatch/internal/config"
	"github.com/poolwatch/poolwatch/internal/monitoring"
	"github.com/poolwatch/poolwatch/internal/notify"
	"github.com/poolwatch/poolwatch/internal/tail"
	"github.com/poolwatch/poolwatch/internal/watcher"
)

// ANSI color codes
const (
	watchBlue = "\033[38;2;66;135;245m"
	bold      = "\033[1m"
	reset     = "\033[0m"
)

// ASCII banner for startup
const banner = `
 ██████╗  ██████╗  ██████╗ ██╗     ██╗    ██╗ █████╗ ████████╗ ██████╗██╗  ██╗
 ██╔══██╗██╔═══██╗██╔═══██╗██║     ██║    ██║██╔══██╗╚══██╔══╝██╔════╝██║  ██║
 ██████╔╝██║   ██║██║   ██║██║     ██║ █╗ ██║███████║   ██║   ██║     ███████║
 ██╔═══╝ ██║   ██║██║   ██║██║     ██║███╗██║██╔══██║   ██║   ██║     ██╔══██║
 ██║     ╚██████╔╝╚██████╔╝███████╗╚███╔███╔╝██║  ██║   ██║   ╚██████╗██║  ██║
 ╚═╝      ╚═════╝  ╚═════╝ ╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝   ╚═╝    ╚═════╝╚═╝  ╚═╝
`

func printBanner() {
	fmt.Print(watchBlue + bold + banner + reset + "\n")
}

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/poolwatch/.env first
	configEnv := filepath.Join(homeDir, ".config", "poolwatch", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "watch", "run":
			runWatch(os.Args[2:])
			return
		case "version", "-v", "--version":
			PrintVersion()
			return
		case "help", "-h", "--help":
			printHelp()
			return
		}
	}

	// Default: start watching
	runWatch(os.Args[1:])
}

// runWatch wires the pipeline and blocks until shutdown.
func runWatch(args []string) {
	printBanner()
	loadEnvFiles()

	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	logPath := fs.String("log", "", "access log to follow (overrides config)")
	webhook := fs.String("webhook", "", "alert webhook URL (overrides config)")
	fromStart := fs.Bool("from-start", false, "read existing log content instead of seeking to the end")
	_ = fs.Parse(args)

	cfg, source, err := resolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *logPath != "" {
		cfg.Watch.AccessLog = *logPath
	}
	if *webhook != "" {
		cfg.Alert.WebhookURL = *webhook
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	monitoring.Global(cfg.Monitoring.Logging)
	logger := monitoring.New(cfg.Monitoring.Logging)
	logger.Info().
		Str("config", source).
		Str("access_log", cfg.Watch.AccessLog).
		Bool("webhook_configured", cfg.Alert.WebhookURL != "").
		Msg("starting")

	trail, err := monitoring.NewTrail(cfg.Monitoring.Audit)
	if err != nil {
		logger.Fatal().Err(err).Msg("audit trail init failed")
	}

	notifier := notify.NewWebhook(cfg.Alert.WebhookURL, cfg.Alert.Timeout, logger)
	tailer := tail.New(tail.Options{
		Path:         cfg.Watch.AccessLog,
		PollInterval: cfg.Watch.PollInterval,
		FromStart:    *fromStart,
	}, logger)
	coord := watcher.New(watcher.Options{
		ErrorRateThreshold: cfg.Watch.ErrorRateThreshold,
		WindowSize:         cfg.Watch.WindowSize,
		Cooldown:           cfg.Watch.Cooldown,
	}, notifier, trail, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := coord.Run(ctx, tailer); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("watcher exited")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// resolveConfig resolves the effective config and reports its source.
// Checks: user flag -> filesystem locations -> built-in defaults.
func resolveConfig(userConfig string) (*config.Config, string, error) {
	if userConfig != "" {
		cfg, err := config.Load(userConfig)
		return cfg, userConfig, err
	}

	searchPaths := []string{"poolwatch.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(homeDir, ".config", "poolwatch", "config.yaml"),
		)
	}
	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			cfg, err := config.Load(path)
			return cfg, path, err
		}
	}

	cfg := config.Default()
	cfg.ApplyEnvOverrides()
	return cfg, "defaults", nil
}

func printHelp() {
	printBanner()
	fmt.Print(`Usage: poolwatch [command] [flags]

Commands:
  watch       Follow the access log and send alerts (default)
  version     Print version information
  help        Show this help

Flags for watch:
  -config     Path to a YAML config file
  -log        Access log to follow (overrides config)
  -webhook    Alert webhook URL (overrides config)
  -from-start Read existing log content instead of seeking to the end

Environment:
  ALERT_WEBHOOK_URL    Overrides the alert webhook URL
  POOLWATCH_AUDIT_LOG  Enables the alert audit trail at the given path
`)
}
