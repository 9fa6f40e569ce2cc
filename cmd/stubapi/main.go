// Command stubapi serves an in-memory fake of the wishgift REST API for local
// development of the client.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/fastygo/wishgift/internal/config"
	"github.com/fastygo/wishgift/internal/services/lifecycle"
	"github.com/fastygo/wishgift/internal/stubapi"
	"github.com/fastygo/wishgift/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Output:   cfg.Logger.Output,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Shutdown, zapLogger)
	ctx, stop := manager.WithSignals(context.Background())
	defer stop()

	server := stubapi.New(stubapi.Options{
		Secret:   []byte(cfg.Stub.JWTSecret),
		TokenTTL: cfg.Stub.TokenTTL,
		Logger:   zapLogger,
	})
	manager.Register("stub_api", func(context.Context) error {
		return server.Close()
	})

	go func() {
		zapLogger.Info("stub api started", zap.String("address", cfg.Stub.Addr))
		if err := server.ListenAndServe(cfg.Stub.Addr); err != nil {
			zapLogger.Fatal("stub api crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	if err := manager.Close(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
