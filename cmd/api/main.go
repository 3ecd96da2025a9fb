package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/monteverasrl/montevera/internal/adapters/http"
	"github.com/monteverasrl/montevera/internal/adapters/mail"
	natsadapter "github.com/monteverasrl/montevera/internal/adapters/nats"
	"github.com/monteverasrl/montevera/internal/adapters/timetable"
	"github.com/monteverasrl/montevera/internal/adapters/valkey"
	"github.com/monteverasrl/montevera/internal/core/ports"
	"github.com/monteverasrl/montevera/internal/core/usecases"
	"github.com/monteverasrl/montevera/internal/pkg/config"
	"github.com/monteverasrl/montevera/internal/pkg/logging"
	"github.com/monteverasrl/montevera/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("montevera-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Schedule data (embedded, fails fast on bad data)
	schedule, err := timetable.Load()
	if err != nil {
		log.Fatalf("timetable: %v", err)
	}

	// Cache. The API degrades gracefully without it: nearby lookups skip
	// the cache and the vehicle snapshot reads empty.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	loc := cfg.Location()

	// Use cases
	routeSvc := usecases.NewRouteService(schedule)
	stopSvc := usecases.NewStopService(schedule, cacheSvc)
	arrivalSvc := usecases.NewArrivalService(schedule, loc)
	fareSvc := usecases.NewFareService(schedule)
	vehicleSvc := usecases.NewVehicleService(cacheSvc)
	contactSvc := usecases.NewContactService(
		mail.NewSender(cfg.Mail.Endpoint, cfg.Mail.APIKey, cfg.Mail.From, cfg.Mail.To),
	)

	deps := &http.Dependencies{
		Routes:   routeSvc,
		Stops:    stopSvc,
		Arrivals: arrivalSvc,
		Fares:    fareSvc,
		Vehicles: vehicleSvc,
		Contact:  contactSvc,
		NATS:     natsConn,
		Cache:    cache,
		Location: loc,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Monte Vera API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, https://montevera.com.ar, https://www.montevera.com.ar",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
