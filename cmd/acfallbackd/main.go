package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meanin2/ac-automation/internal/config"
	"github.com/meanin2/ac-automation/internal/handlers"
	"github.com/meanin2/ac-automation/internal/history"
	"github.com/meanin2/ac-automation/internal/logger"
	"github.com/meanin2/ac-automation/internal/repository"
	"github.com/meanin2/ac-automation/internal/repository/db"
	"github.com/meanin2/ac-automation/internal/schedule"
	"github.com/meanin2/ac-automation/internal/sensibo"
	"github.com/meanin2/ac-automation/internal/server"
	"github.com/meanin2/ac-automation/internal/service"
	"github.com/meanin2/ac-automation/internal/telemetry"
)

const configDir = "configs"

func main() {
	cfg, err := config.Load(configDir)
	if err != nil {
		// Logger level comes from config, so config errors go straight to stderr.
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log := logger.Get(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalw("invalid timezone", "err", err)
	}

	windows, err := cfg.BuildWindows()
	if err != nil {
		log.Fatalw("invalid window table", "err", err)
	}
	table, err := schedule.NewTable(windows, loc)
	if err != nil {
		log.Fatalw("invalid window table", "err", err)
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	client := sensibo.NewClient(
		cfg.Sensibo.BaseURL,
		cfg.Sensibo.APIKey,
		time.Duration(cfg.Sensibo.TimeoutSec)*time.Second,
		cfg.Sensibo.Retries,
	)

	deviceID, err := resolveDeviceID(client, cfg.Sensibo.PodID)
	if err != nil {
		log.Fatalw("device discovery failed", "err", err)
	}

	repos := repository.NewRepository(sqlDB)
	services := service.NewService(service.Deps{
		DeviceID:   deviceID,
		Client:     client,
		Repos:      repos,
		Windows:    table,
		Policy:     cfg.PolicyConfig(),
		History:    history.New(cfg.History.MaxSamples, time.Duration(cfg.History.MaxAgeMin)*time.Minute),
		Cache:      telemetry.NewCache(time.Duration(cfg.Monitor.CacheTTLSec) * time.Second),
		CacheTTL:   time.Duration(cfg.Monitor.CacheTTLSec) * time.Second,
		Staleness:  time.Duration(cfg.Monitor.StalenessSec) * time.Second,
		SigningKey: cfg.Auth.SigningKey,
		Log:        log,
	})
	apiHandler := handlers.NewHandler(services, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Single reconciler goroutine owns cache, history and cooldown.
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		services.Reconciler.Run(ctx, time.Duration(cfg.Monitor.IntervalMin)*time.Minute)
	}()

	srv := &server.Server{}
	go func() {
		if err := srv.Run(cfg.Port, apiHandler.InitRoutes()); err != nil {
			log.Errorw("http server stopped", "err", err)
		}
	}()

	log.Infow("acfallbackd running",
		"device", deviceID,
		"zone", cfg.Timezone,
		"interval_min", cfg.Monitor.IntervalMin,
		"windows", len(windows),
	)

	waitForShutdown(cancel, loopDone, srv, log)
}

// resolveDeviceID returns the configured pod id, or discovers it when exactly
// one pod exists on the account. Anything else is a fatal configuration error.
func resolveDeviceID(client *sensibo.Client, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ids, err := client.ListPodIDs(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", fmt.Errorf("expected exactly 1 pod, found %d; set SENSIBO_POD_ID", len(ids))
	}
	return ids[0], nil
}

// waitForShutdown blocks on SIGINT/SIGTERM, lets the in-flight tick finish,
// then drains the HTTP server.
func waitForShutdown(cancel context.CancelFunc, loopDone <-chan struct{}, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")

	cancel()
	select {
	case <-loopDone:
	case <-time.After(30 * time.Second):
		log.Warnw("reconciler loop did not stop in time")
	}

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
