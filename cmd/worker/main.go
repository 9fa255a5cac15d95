package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitconnect/mealscan/internal/bootstrap"
	"github.com/fitconnect/mealscan/internal/config"
	"github.com/fitconnect/mealscan/internal/observability/logging"
	"github.com/fitconnect/mealscan/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.NewJSONLogger("mealscan-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSScanSubject)
	err = app.Queue.SubscribeScanCaptured(ctx, func(handlerCtx context.Context, scanID string) error {
		if rec, err := app.Scans.GetByID(handlerCtx, scanID); err == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(rec.CreatedAt))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartScan()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, scanID)
		workerMetrics.FinishScan("worker", time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
