package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/shoplens/searchcore/internal/adapters/http"
	"github.com/shoplens/searchcore/internal/bootstrap"
	"github.com/shoplens/searchcore/internal/config"
	"github.com/shoplens/searchcore/internal/observability/logging"
	"github.com/shoplens/searchcore/internal/observability/metrics"
)

const serviceName = "searchcore-api"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(nil, serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewSearchServerMetrics(serviceName)
	router := httpadapter.NewRouter(app.SearchUC, serverMetrics, httpadapter.RouterOptions{
		Service:        serviceName,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxConcurrent:  cfg.APIMaxConcurrent,
		EnqueueWait:    time.Duration(cfg.APIEnqueueWaitMS) * time.Millisecond,
	}).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
