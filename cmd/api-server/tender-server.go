package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"procurement/internal/app"
	"procurement/internal/config"
	"procurement/internal/logger"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Cannot build logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	a, err := app.NewApp(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		zl.Error("server stopped", zap.Error(err))
	}
}
