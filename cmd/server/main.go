package main

import (
	"context"
	"errors"
	netHttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"school-payment-service/app"
	"school-payment-service/config"
	"school-payment-service/http"
	"school-payment-service/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("Error loading configuration: %v", err)
	}
	logger.Default().SetLevel(logger.ParseLevel(cfg.Server.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Error initializing application: %v", err)
	}

	go a.Consumer.Run(ctx)

	srv := &netHttp.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           http.NewRouter(a.Handler(), cfg.Server.APIToken),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, netHttp.ErrServerClosed) {
			logger.Error("Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server: %v", err)
	}
	if err := a.Close(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	logger.Info("Server shutdown complete")
}
