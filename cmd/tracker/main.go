package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/monteverasrl/montevera/internal/adapters/gps"
	natsadapter "github.com/monteverasrl/montevera/internal/adapters/nats"
	"github.com/monteverasrl/montevera/internal/adapters/timetable"
	"github.com/monteverasrl/montevera/internal/adapters/valkey"
	"github.com/monteverasrl/montevera/internal/core/ports"
	"github.com/monteverasrl/montevera/internal/core/usecases"
	"github.com/monteverasrl/montevera/internal/pkg/config"
	"github.com/monteverasrl/montevera/internal/pkg/logging"
)

// The tracker polls the GPS provider for the whole fleet, writes the latest
// snapshot to Valkey for the API, and publishes every reading to NATS for
// websocket clients. It runs beside the API as its own process.
func main() {
	cfg, err := config.Load("montevera-tracker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Schedule data, used to tag positions with a likely direction
	schedule, err := timetable.Load()
	if err != nil {
		log.Fatalf("timetable: %v", err)
	}

	// Cache for the fleet snapshot
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	// NATS for live position fan-out
	var publisher ports.EventPublisher
	if !cfg.GPS.DisablePublisher {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, running without fan-out", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	feed := gps.NewClient(
		cfg.GPS.BaseURL,
		cfg.GPS.Session,
		cfg.GPS.Fleet,
		cfg.GPS.StaleAfter,
		cfg.GPS.MaxConcurrent,
		cfg.GPS.RequestTimeout,
	)

	svc := usecases.NewTrackerService(feed, cache, publisher, schedule, cfg.GPS.SnapshotTTL)

	tracker := gps.NewTracker(svc, cfg.GPS.PollEvery())
	tracker.Start(ctx)

	slog.Info("fleet tracker started",
		"devices", len(cfg.GPS.Fleet),
		"interval", cfg.GPS.PollEvery().String(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, stopping tracker", "signal", sig.String())
	tracker.Stop()
	slog.Info("tracker stopped")
}
