// Package natsadapter publishes and consumes region refresh events over
// NATS JetStream. Events carry a summary of the refresh, not the place
// set itself; consumers pull the snapshot from the cache.
package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

// RefreshedEvent is the wire payload for a completed region refresh.
type RefreshedEvent struct {
	Region      string    `json:"region"`
	Generation  uint64    `json:"generation"`
	Places      int       `json:"places"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// FailedEvent is the wire payload for a refresh that errored out.
type FailedEvent struct {
	Region   string    `json:"region"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the region event stream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "REGION_EVENTS",
		Subjects:  []string{"map.region.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRegionRefreshed announces a freshly published snapshot.
func (p *Publisher) PublishRegionRefreshed(ctx context.Context, snap *domain.RegionSnapshot) error {
	data, err := json.Marshal(RefreshedEvent{
		Region:      snap.Region,
		Generation:  snap.Generation,
		Places:      len(snap.Places),
		RefreshedAt: snap.RefreshedAt,
	})
	if err != nil {
		return err
	}
	_, err = p.js.Publish("map.region.refreshed."+snap.Region, data)
	return err
}

// PublishRefreshFailed announces a refresh that did not produce a
// snapshot.
func (p *Publisher) PublishRefreshFailed(ctx context.Context, region string, reason string) error {
	data, err := json.Marshal(FailedEvent{
		Region:   region,
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = p.js.Publish("map.region.failed."+region, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
