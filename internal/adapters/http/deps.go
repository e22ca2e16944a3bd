package http

import (
	"github.com/nats-io/nats.go"

	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/valkey"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/usecases"
	"github.com/RelativelyIrrelevant/btcmapd/internal/sitemap"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Regions *usecases.RegionService
	Meetups *usecases.MeetupService
	Places  *usecases.PlaceService
	Sitemap *sitemap.Builder
	NATS    *nats.Conn
	Cache   *valkey.Cache
}
