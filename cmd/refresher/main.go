// The refresher periodically re-runs the load pipeline for every
// registry region, keeping the cached snapshots warm so API reads never
// wait on the upstream.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/btcmap"
	natsadapter "github.com/RelativelyIrrelevant/btcmapd/internal/adapters/nats"
	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/registry"
	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/valkey"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/ports"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/usecases"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/config"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("btcmapd-refresher")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup("btcmapd-refresher", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	regions, err := registry.NewRegionFile(cfg.Data.RegistryPath)
	if err != nil {
		log.Fatalf("region registry: %v", err)
	}

	// The refresher is pointless without a cache to warm; fail hard.
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, refreshes will not be announced", "error", err)
	} else {
		defer publisher.Close()
		events = publisher
	}

	client := btcmap.New(cfg.Upstream.BaseURL, cfg.Upstream.UserAgent,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second)

	svc := usecases.NewRegionService(regions, client, client, cache, events)

	interval := time.Duration(cfg.Refresh.IntervalMinutes) * time.Minute
	slog.Info("refresher starting", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Run once immediately
	refreshAll(ctx, svc, regions)

	for {
		select {
		case <-ticker.C:
			refreshAll(ctx, svc, regions)
		case <-ctx.Done():
			return
		case sig := <-quit:
			slog.Info("shutting down refresher", "signal", sig.String())
			cancel()
			// Give in-flight refreshes time to finish
			time.Sleep(2 * time.Second)
			return
		}
	}
}

// refreshAll refreshes every region, a few at a time. One region's
// failure never blocks the others.
func refreshAll(ctx context.Context, svc *usecases.RegionService, regions *registry.RegionFile) {
	list, err := regions.List(ctx)
	if err != nil {
		slog.Error("list regions", "error", err)
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 3) // max 3 regions at once

	for _, region := range list {
		wg.Add(1)
		go func(slug string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			snap, err := svc.Refresh(ctx, slug)
			if err != nil {
				slog.Error("refresh failed", "region", slug, "error", err)
				return
			}
			slog.Info("refreshed",
				"region", slug,
				"generation", snap.Generation,
				"places", len(snap.Places),
			)
		}(region.Slug)
	}

	wg.Wait()
}
