package admind

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// requestMetrics records latency and status counts per route on a registry
// of its own, so several endpoints can coexist in one process.
type requestMetrics struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

func newRequestMetrics() *requestMetrics {
	reg := prometheus.NewRegistry()
	return &requestMetrics{
		registry: reg,
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ircd_admin_request_duration_seconds",
				Help:    "Admin HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		total: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ircd_admin_requests_total",
				Help: "Total number of admin HTTP requests by status code",
			},
			[]string{"method", "path", "code"},
		),
	}
}

func (m *requestMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			// 404s have no route template
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			m.duration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			m.total.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
