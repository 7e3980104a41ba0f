package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/umthana/SungrowInverter/internal/config"
	"github.com/umthana/SungrowInverter/internal/storage"
	"github.com/umthana/SungrowInverter/internal/system"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Config loaded successfully", zap.String("path", *configPath))

	var publisher system.ProfilePublisher
	if cfg.Database.PublishOnStart {
		db, err := storage.NewPostgresClient(context.Background(), cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to prepare database", zap.Error(err))
		}
		publisher = db

		logger.Info("Database connected successfully")
	}

	lifecycle, err := system.NewLifecycleManager(cfg, publisher, logger)
	if err != nil {
		logger.Fatal("Failed to build register catalog", zap.Error(err))
	}

	if err := lifecycle.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start system", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			logger.Info("Reload signal received")
			if err := lifecycle.Reload(context.Background()); err != nil {
				logger.Error("Reload failed", zap.Error(err))
			}
			continue
		}
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		break
	}

	if err := lifecycle.Shutdown(context.Background()); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Sungrow register catalog service stopped")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
