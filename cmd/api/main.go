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
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/btcmap"
	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/http"
	natsadapter "github.com/RelativelyIrrelevant/btcmapd/internal/adapters/nats"
	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/registry"
	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/spatial"
	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/valkey"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/ports"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/usecases"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/config"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/logging"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/telemetry"
	"github.com/RelativelyIrrelevant/btcmapd/internal/sitemap"
)

func main() {
	cfg, err := config.Load("btcmapd-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup("btcmapd-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Local data files
	regions, err := registry.NewRegionFile(cfg.Data.RegistryPath)
	if err != nil {
		log.Fatalf("region registry: %v", err)
	}
	meetups, err := registry.NewMeetupFile(cfg.Data.MeetupsPath)
	if err != nil {
		log.Fatalf("meetup data: %v", err)
	}

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Upstream client
	client := btcmap.New(cfg.Upstream.BaseURL, cfg.Upstream.UserAgent,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second)

	// Use cases
	regionSvc := newRegionService(regions, client, cache, publisher)
	meetupSvc := usecases.NewMeetupService(meetups)
	placeSvc := usecases.NewPlaceService(regionSvc, spatial.NewIndex())

	// Rebuild the nearby index whenever the refresher publishes a new
	// snapshot for any region.
	if publisher != nil {
		subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer subscriber.Close()
			err := subscriber.SubscribeRegionRefreshed(ctx, "api-reindexer",
				func(ctx context.Context, event *natsadapter.RefreshedEvent) error {
					slog.Info("reindexing after refresh", "region", event.Region, "generation", event.Generation)
					return placeSvc.Reindex(ctx)
				})
			if err != nil {
				slog.Warn("subscribe region refreshes", "error", err)
			}
		}
	}

	deps := &http.Dependencies{
		Regions: regionSvc,
		Meetups: meetupSvc,
		Places:  placeSvc,
		Sitemap: sitemap.NewBuilder(cfg.Server.BaseURL),
		NATS:    natsConn,
		Cache:   cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "btcmapd API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://bitcoindiana.org",
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

// newRegionService wires optional dependencies without handing typed
// nils to the service.
func newRegionService(regions *registry.RegionFile, client *btcmap.Client, cache *valkey.Cache, publisher *natsadapter.Publisher) *usecases.RegionService {
	var (
		cacheSvc ports.CacheService
		eventSvc ports.EventPublisher
	)
	if cache != nil {
		cacheSvc = cache
	}
	if publisher != nil {
		eventSvc = publisher
	}
	return usecases.NewRegionService(regions, client, client, cacheSvc, eventSvc)
}
