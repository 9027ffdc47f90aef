package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"real-estate-matching/internal/app"
	"real-estate-matching/internal/config"
	"real-estate-matching/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := getEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("path", configPath),
		zap.String("database", cfg.Database.Type),
		zap.Bool("search", cfg.Search.Enabled),
		zap.Bool("kafka", cfg.Events.Kafka.Enabled),
		zap.String("push", cfg.Push.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}

	if err := a.Run(ctx); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
