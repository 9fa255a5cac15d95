package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/fitconnect/mealscan/internal/adapters/http"
	"github.com/fitconnect/mealscan/internal/bootstrap"
	"github.com/fitconnect/mealscan/internal/config"
	"github.com/fitconnect/mealscan/internal/observability/logging"
	"github.com/fitconnect/mealscan/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.NewJSONLogger("mealscan-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	api := httpadapter.NewRouter(
		app.IngestUC,
		app.Scans,
		app.SaveUC,
		app.LogUC,
		app.SummaryUC,
		app.Catalog,
		app.Store,
		app.Sessions,
		serverMetrics,
	).Handler(cfg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", serverMetrics.Handler())
	mux.Handle("/", api)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
