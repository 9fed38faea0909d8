package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"omnichat/internal/config"
	"omnichat/internal/constants"
	"omnichat/internal/database"
	"omnichat/internal/identity"
	"omnichat/internal/llm"
	"omnichat/internal/models"
	"omnichat/internal/realtime"
	"omnichat/internal/service"
	"omnichat/internal/tracing"
	"omnichat/pkg/channel"
	"omnichat/pkg/evolution"
	"omnichat/pkg/waha"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("omnichat %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting omnichat")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	hub := realtime.NewHub(logger)
	registry := service.NewAdapterRegistry(newAdapter)
	resolver := identity.NewResolver(cfg.Identity.DefaultCountryCode)
	conversations := service.NewConversationService(db, logger)
	dispatcher := service.NewDispatcher(db, hub, logger)
	orchestrator := llm.NewOrchestrator(db, logger)
	gateway := service.NewGateway(db, resolver, conversations, orchestrator, dispatcher, registry, hub, logger)

	startRetentionLoop(ctx, db, cfg.RetentionDays, logger)
	callbackBase := cfg.PublicCallbackBase
	if callbackBase == "" {
		stored, err := db.GetGlobalSetting(ctx, constants.SettingCallbackBaseURL)
		if err != nil {
			logger.WithError(err).Warn("Failed to read stored callback base URL")
		} else {
			callbackBase = stored
		}
	}
	syncCallbackURLs(ctx, db, registry, callbackBase, logger)

	server := NewServer(cfg, gateway, hub, db, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

// newAdapter builds the provider client matching an integration's type.
func newAdapter(integration *models.Integration) (channel.Adapter, error) {
	switch integration.Type {
	case models.IntegrationEvolution:
		return evolution.NewClient(integration.BaseURL, integration.APIKey,
			integration.InstanceName, adapterTimeout()), nil
	case models.IntegrationWAHA:
		return waha.NewClient(integration.BaseURL, integration.APIKey,
			integration.InstanceName, adapterTimeout()), nil
	default:
		return nil, fmt.Errorf("unsupported integration type: %s", integration.Type)
	}
}
