package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"news_portal/internal/domain"
)

const namespace = "news_portal"

type Metrics struct {
	syncRuns        *prometheus.CounterVec
	syncArticles    *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	lastSyncSuccess prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync cycles by result.",
		}, []string{"result"}),
		syncArticles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "articles_total",
			Help:      "Feed records processed by outcome.",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of successful sync cycles.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		lastSyncSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync cycle.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.syncRuns,
		m.syncArticles,
		m.syncDuration,
		m.lastSyncSuccess,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// ObserveSync records the outcome of one sync cycle. stats may be nil when
// the cycle failed before fetching anything.
func (m *Metrics) ObserveSync(stats *domain.SyncStats, err error) {
	if err != nil {
		m.syncRuns.WithLabelValues("error").Inc()
	} else {
		m.syncRuns.WithLabelValues("success").Inc()
		m.lastSyncSuccess.SetToCurrentTime()
	}

	if stats == nil {
		return
	}

	m.syncArticles.WithLabelValues("inserted").Add(float64(stats.New))
	m.syncArticles.WithLabelValues("updated").Add(float64(stats.Updated))
	m.syncArticles.WithLabelValues("skipped").Add(float64(stats.Skipped))
	m.syncArticles.WithLabelValues("error").Add(float64(stats.Errors))

	if err == nil {
		m.syncDuration.Observe(stats.Duration.Seconds())
	}
}

// Middleware records request counts and latency keyed by the matched route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
