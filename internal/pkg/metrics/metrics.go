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
		Namespace: "montevera",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "montevera",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "montevera",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Fleet tracking metrics
	GPSPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "montevera",
		Subsystem: "gps",
		Name:      "poll_duration_seconds",
		Help:      "Duration of one GPS fleet polling cycle",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	GPSPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "montevera",
		Subsystem: "gps",
		Name:      "poll_errors_total",
		Help:      "Total GPS polling cycles that failed",
	})

	GPSDeviceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "montevera",
		Subsystem: "gps",
		Name:      "device_errors_total",
		Help:      "Total per-device fetch failures",
	}, []string{"device"})

	VehiclePositionsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "montevera",
		Subsystem: "gps",
		Name:      "vehicle_positions_published_total",
		Help:      "Total vehicle positions published to the broker",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "montevera",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "montevera",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "montevera",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	ContactMailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "montevera",
		Subsystem: "contact",
		Name:      "mails_total",
		Help:      "Total contact-form dispatch attempts by outcome",
	}, []string{"outcome"})
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
