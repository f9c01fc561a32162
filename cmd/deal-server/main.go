// cmd/deal-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"deal-tracker/internal/api"
	"deal-tracker/internal/app"
	"deal-tracker/internal/common/config"
	"deal-tracker/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting deal server...", zap.String("environment", cfg.App.Environment))

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close(context.Background())

	runTimeout := config.GetDuration(config.GetWorkerConfig(cfg, "refresh-deals").Timeout)
	server := api.NewServer(a.Coordinator, cfg.Server.CronSecret, runTimeout, log).WithDeals(a.Store)
	router := api.NewRouter(server, promhttp.Handler())

	// --- Scheduler ---
	var scheduler *cron.Cron
	if cfg.Server.ScheduleEnabled {
		scheduler = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
		_, err := scheduler.AddFunc(cfg.Server.Schedule, func() {
			runCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()
			summary, err := a.Coordinator.Run(runCtx, "cron", false)
			if err != nil {
				zapLog.Error("scheduled run failed", zap.Error(err))
				return
			}
			zapLog.Info("scheduled run completed",
				zap.String("runId", summary.RunID),
				zap.Int("inserted", summary.Inserted),
			)
		})
		if err != nil {
			zapLog.Fatal("invalid schedule", zap.String("schedule", cfg.Server.Schedule), zap.Error(err))
		}
		scheduler.Start()
		zapLog.Info("scheduler started", zap.String("schedule", cfg.Server.Schedule))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Deal server stopped gracefully")
}
