package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/zenith/internal/app"
	"github.com/sandeepkv93/zenith/internal/config"
	"github.com/sandeepkv93/zenith/internal/logger"
	"github.com/sandeepkv93/zenith/internal/update"
	flag "github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "zenith failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading ZENITH_* variables")
	dbPath := flag.String("db", "", "sqlite database path (overrides ZENITH_DB_PATH)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides ZENITH_LOG_LEVEL)")
	remote := flag.String("remote", "", "none, memory or firestore (overrides ZENITH_REMOTE)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	cfg := config.RuntimeConfigFromEnv(config.DefaultRuntimeConfig())
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *remote != "" {
		cfg.Remote = config.RemoteKind(*remote)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Format = cfg.LogFormat
	logCfg.Output = cfg.LogOutput
	logCfg.FilePath = cfg.LogFile
	log, closer, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()
	if err := a.Start(ctx); err != nil {
		return err
	}

	program := tea.NewProgram(update.NewModel(ctx, a, nil), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return err
	}
	return nil
}
