package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/llm"
)

const metricsNamespace = "rehab"

// Metrics owns a private registry so several servers can coexist in one process
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestSeconds  *prometheus.HistogramVec
	generations     *prometheus.CounterVec
	generationTime  *prometheus.HistogramVec
	dailyLogsTotal  *prometheus.CounterVec
	watchersCurrent prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "llm",
				Name:      "generations_total",
				Help:      "Text generations by consumer and outcome",
			},
			[]string{"kind", "outcome"},
		),
		generationTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "llm",
				Name:      "generation_duration_seconds",
				Help:      "Text generation latency by consumer",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		dailyLogsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "recovery",
				Name:      "daily_logs_total",
				Help:      "Daily logs by verdict",
			},
			[]string{"verdict"},
		),
		watchersCurrent: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "watch",
				Name:      "subscribers",
				Help:      "Open websocket watch subscriptions",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument counts and times generations made through gen under kind
func (m *Metrics) Instrument(kind string, gen llm.Generator) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, req llm.Request) (string, error) {
		start := time.Now()
		text, err := gen.Generate(ctx, req)
		m.generationTime.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		m.generations.WithLabelValues(kind, outcome(err)).Inc()
		return text, err
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperrors.KindOf(err) == apperrors.KindRateLimited:
		return "rate_limited"
	default:
		return "error"
	}
}

// ObserveLog counts a saved daily log
func (m *Metrics) ObserveLog(consumed bool) {
	verdict := "sober"
	if consumed {
		verdict = "consumed"
	}
	m.dailyLogsTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
