// Package metrics exposes Prometheus collectors for bot handlers, outbound
// sends and homework storage operations.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/homeworkbot/core/logger"
)

var (
	defaultMu        sync.RWMutex
	defaultCollector *Collector
)

// Collector holds all Prometheus metrics for the bot.
type Collector struct {
	registry *prometheus.Registry

	Updates         *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	Sends           *prometheus.CounterVec
	StoreOps        *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	HomeworkItems   prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// NewCollector builds a collector on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Handled Telegram updates by handler and outcome.",
		}, []string{"handler", "outcome"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
		Sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_sends_total",
			Help:      "Outbound Telegram calls by action and status.",
		}, []string{"action", "status"}),
		StoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Homework store operations by backend, operation and status.",
		}, []string{"backend", "op", "status"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Homework store operation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		HomeworkItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "homework_items_saved_total",
			Help:      "Homework items saved across all entries.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Users currently inside a conversation.",
		}),
	}

	registry.MustRegister(
		c.Updates,
		c.HandlerDuration,
		c.Sends,
		c.StoreOps,
		c.StoreDuration,
		c.HomeworkItems,
		c.ActiveSessions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// SetDefault installs c as the process-wide collector used by middleware and stores.
func SetDefault(c *Collector) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCollector = c
}

// Default returns the process-wide collector or nil when metrics are disabled.
func Default() *Collector {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultCollector
}

// Registry exposes the underlying registry for tests and custom exporters.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHandler records one handled update. Safe on a nil collector.
func (c *Collector) ObserveHandler(handler, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.Updates.WithLabelValues(handler, outcome).Inc()
	c.HandlerDuration.WithLabelValues(handler).Observe(took.Seconds())
}

// ObserveSend records one outbound Telegram call. Safe on a nil collector.
func (c *Collector) ObserveSend(action string, err error) {
	if c == nil {
		return
	}
	c.Sends.WithLabelValues(action, logger.Status(err)).Inc()
}

// ObserveStore records one storage operation. Safe on a nil collector.
func (c *Collector) ObserveStore(backend, op string, err error, took time.Duration) {
	if c == nil {
		return
	}
	c.StoreOps.WithLabelValues(backend, op, logger.Status(err)).Inc()
	c.StoreDuration.WithLabelValues(backend, op).Observe(took.Seconds())
}

// AddItems counts saved homework items. Safe on a nil collector.
func (c *Collector) AddItems(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.HomeworkItems.Add(float64(n))
}

// SetActiveSessions reports the number of users inside a conversation. Safe on a nil collector.
func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(n))
}

// Server serves the collector registry over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer prepares an HTTP server exposing c on path at listen.
func NewServer(c *Collector, listen, path string) *Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry}))
	return &Server{srv: &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start runs the server in the background.
func (s *Server) Start() {
	go func() {
		logger.Info(context.Background(), "metrics", "metrics.listen",
			slog.String("listen", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "metrics", "metrics.serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
