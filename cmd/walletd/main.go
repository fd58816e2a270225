package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"log/slog"

	coreconfig "github.com/kmwangi/ethpesa/core/config"
	"github.com/kmwangi/ethpesa/core/logger"
	"github.com/kmwangi/ethpesa/walletd"
)

type config struct {
	Addr       string `envconfig:"WALLETD_ADDR" default:":8080"`
	LogLevel   string `envconfig:"WALLETD_LOG_LEVEL" default:"info"`
	LogProfile string `envconfig:"WALLETD_LOG_PROFILE" default:"prod"`
}

func main() {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("walletd: config: %v", err)
	}

	if err := logger.InitLogger(&coreconfig.Config{
		Logging: coreconfig.LoggingConfig{Level: cfg.LogLevel, Profile: cfg.LogProfile},
	}); err != nil {
		log.Fatalf("walletd: logger init: %v", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("walletd: logger shutdown: %v", err)
		}
	}()

	srv := walletd.NewServer(walletd.DefaultOptions()).HTTPServer(cfg.Addr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Component("walletd").Info("listening",
		slog.String("event", "startup"),
		slog.String("listen", cfg.Addr),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("walletd: shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("walletd: serve: %v", err)
		}
	}
}
