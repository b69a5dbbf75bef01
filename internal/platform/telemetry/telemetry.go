// Package telemetry exposes Prometheus metrics for the HTTP surface, the
// database pool, and the push fan-out, plus the /metrics handler.
package telemetry

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	PushSends        *prometheus.CounterVec
	DBPoolConns      *prometheus.GaugeVec
}

// New creates a metrics instance with its own registry.
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "healthtrack",
				Subsystem: serviceName,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "healthtrack",
				Subsystem: serviceName,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "healthtrack",
				Subsystem: serviceName,
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		PushSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "healthtrack",
				Subsystem: serviceName,
				Name:      "push_sends_total",
				Help:      "Push gateway calls by result",
			},
			[]string{"result"}, // delivered, failed, skipped
		),
		DBPoolConns: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "healthtrack",
				Subsystem: serviceName,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"},
		),
	}

	registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.RequestsInFlight,
		m.PushSends,
		m.DBPoolConns,
	)

	return m
}

// Middleware records request count, duration, and in-flight gauge per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)

			// Route pattern, not the raw path, to keep cardinality bounded.
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()

			return err
		}
	}
}

// RecordPushSend counts a single push gateway call outcome.
func (m *Metrics) RecordPushSend(result string) {
	m.PushSends.WithLabelValues(result).Inc()
}

// RecordDBPoolStats copies pool statistics into the gauge vector.
func (m *Metrics) RecordDBPoolStats(pool *pgxpool.Pool) {
	stat := pool.Stat()
	m.DBPoolConns.WithLabelValues("total").Set(float64(stat.TotalConns()))
	m.DBPoolConns.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	m.DBPoolConns.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))
	m.DBPoolConns.WithLabelValues("max").Set(float64(stat.MaxConns()))
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
