package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btcmapd",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btcmapd",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Upstream place-search metrics
	CircleFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "upstream",
		Name:      "circle_fetches_total",
		Help:      "Total coverage-circle queries issued to the place API",
	}, []string{"outcome"})

	CircleFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "btcmapd",
		Subsystem: "upstream",
		Name:      "circle_fetch_duration_seconds",
		Help:      "Duration of one coverage-circle query",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// Pipeline metrics
	PlacesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "pipeline",
		Name:      "places_fetched_total",
		Help:      "Deduplicated candidate places entering the containment filter",
	}, []string{"region"})

	PlacesInside = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "pipeline",
		Name:      "places_inside_total",
		Help:      "Places that passed the containment filter",
	}, []string{"region"})

	BoxRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "pipeline",
		Name:      "bbox_rejections_total",
		Help:      "Candidates rejected by the bounding-box pre-filter",
	}, []string{"region"})

	RayCasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "pipeline",
		Name:      "raycast_tests_total",
		Help:      "Candidates that required the exact ray-casting test",
	}, []string{"region"})

	RefreshFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "pipeline",
		Name:      "refresh_failures_total",
		Help:      "Region refreshes aborted by transport or shape errors",
	}, []string{"region"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "btcmapd",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btcmapd",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
