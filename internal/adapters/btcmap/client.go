// Package btcmap is the HTTP client for the remote place-search API and
// for region boundary files.
package btcmap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/metrics"
)

// Client talks to the upstream place-search API. It implements the
// PlaceSource and BoundaryFetcher ports.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// New creates a Client. timeout bounds each individual request.
func New(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// apiPlace is the upstream wire shape. Coordinates arrive as bare
// numbers; everything else is optional.
type apiPlace struct {
	ID         int64      `json:"id"`
	Lat        *float64   `json:"lat"`
	Lon        *float64   `json:"lon"`
	Name       string     `json:"name"`
	Icon       string     `json:"icon"`
	Address    string     `json:"address"`
	Website    string     `json:"website"`
	Phone      string     `json:"phone"`
	OSMURL     string     `json:"osm_url"`
	VerifiedAt *time.Time `json:"verified_at"`
}

// FetchCircle queries one coverage circle. A non-2xx status is a
// transport error; a body that is not a JSON array is a shape error.
// Either aborts the circle (and with it the whole aggregation).
func (c *Client) FetchCircle(ctx context.Context, circle domain.CoverageCircle) ([]domain.Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(circle.Center.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(circle.Center.Lon, 'f', -1, 64))
	q.Set("radius_km", strconv.FormatFloat(circle.RadiusKm, 'f', -1, 64))

	started := time.Now()
	body, err := c.get(ctx, c.baseURL+"/v2/places?"+q.Encode(), "application/json")
	metrics.CircleFetchDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.CircleFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.CircleFetches.WithLabelValues("ok").Inc()

	var raw []apiPlace
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("response is not a place array: %w", err)
	}

	places := make([]domain.Place, 0, len(raw))
	for _, p := range raw {
		if p.Lat == nil || p.Lon == nil {
			// Record-level data error: drop it, keep the batch.
			continue
		}
		places = append(places, domain.Place{
			ID:         p.ID,
			Name:       p.Name,
			Icon:       p.Icon,
			Address:    p.Address,
			Website:    p.Website,
			Phone:      p.Phone,
			OSMURL:     p.OSMURL,
			VerifiedAt: p.VerifiedAt,
			Location:   domain.GeoPoint{Lat: *p.Lat, Lon: *p.Lon},
		})
	}
	return places, nil
}

// FetchBoundary retrieves a raw GeoJSON boundary document.
func (c *Client) FetchBoundary(ctx context.Context, boundaryURL string) ([]byte, error) {
	return c.get(ctx, boundaryURL, "application/geo+json,application/json")
}

func (c *Client) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
