package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the consumers and the feed API.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	ordersProcessedTotal  *prometheus.CounterVec
	conditionChecksTotal  *prometheus.CounterVec
	conditionRetriesTotal prometheus.Counter
	dispatchTotal         *prometheus.CounterVec
	dispatchDuration      *prometheus.HistogramVec
	feedAppendsTotal      *prometheus.CounterVec
	consumerInflight      *prometheus.GaugeVec
	channelPaused         *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notification_orders",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notification_orders",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ordersProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notification_orders",
				Name:      "orders_processed_total",
				Help:      "Total number of past-due orders that reached a recorded outcome.",
			},
			[]string{"outcome"},
		),
		conditionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notification_orders",
				Name:      "condition_checks_total",
				Help:      "Total number of send-condition evaluations by result.",
			},
			[]string{"result"},
		),
		conditionRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notification_orders",
				Name:      "condition_retries_total",
				Help:      "Total number of orders re-published to the condition retry topic.",
			},
		),
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notification_orders",
				Name:      "dispatch_total",
				Help:      "Total number of gateway dispatch attempts by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notification_orders",
				Name:      "dispatch_duration_seconds",
				Help:      "Gateway dispatch duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		feedAppendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notification_orders",
				Name:      "feed_appends_total",
				Help:      "Total number of status feed append attempts by source and result.",
			},
			[]string{"source", "result"},
		),
		consumerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "notification_orders",
				Name:      "consumer_inflight",
				Help:      "Current number of in-flight messages grouped by consumer.",
			},
			[]string{"consumer"},
		),
		channelPaused: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "notification_orders",
				Name:      "channel_paused",
				Help:      "Whether dispatch for a channel is currently paused (1) or not (0).",
			},
			[]string{"channel"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.ordersProcessedTotal,
		m.conditionChecksTotal,
		m.conditionRetriesTotal,
		m.dispatchTotal,
		m.dispatchDuration,
		m.feedAppendsTotal,
		m.consumerInflight,
		m.channelPaused,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncOrderProcessed(outcome string) {
	if m == nil {
		return
	}
	m.ordersProcessedTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncConditionCheck(result string) {
	if m == nil {
		return
	}
	m.conditionChecksTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncConditionRetry() {
	if m == nil {
		return
	}
	m.conditionRetriesTotal.Inc()
}

func (m *Metrics) IncDispatch(channel string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.dispatchTotal.WithLabelValues(normalizeLabel(channel), outcome).Inc()
}

func (m *Metrics) ObserveDispatchDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.dispatchDuration.WithLabelValues(normalizeLabel(channel)).Observe(seconds)
}

func (m *Metrics) IncFeedAppend(source string, appended bool) {
	if m == nil {
		return
	}
	result := "deduplicated"
	if appended {
		result = "appended"
	}
	m.feedAppendsTotal.WithLabelValues(normalizeLabel(source), result).Inc()
}

func (m *Metrics) IncConsumerInFlight(consumer string) {
	if m == nil {
		return
	}
	m.consumerInflight.WithLabelValues(normalizeLabel(consumer)).Inc()
}

func (m *Metrics) DecConsumerInFlight(consumer string) {
	if m == nil {
		return
	}
	m.consumerInflight.WithLabelValues(normalizeLabel(consumer)).Dec()
}

func (m *Metrics) SetChannelPaused(channel string, paused bool) {
	if m == nil {
		return
	}
	value := 0.0
	if paused {
		value = 1.0
	}
	m.channelPaused.WithLabelValues(normalizeLabel(channel)).Set(value)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
