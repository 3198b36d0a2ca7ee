package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cash_http_requests_total",
			Help: "Total number of HTTP requests processed by the cash request service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cash_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cash_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cash_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cash_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	requestsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cash_requests_created_total",
			Help: "Total number of cash requests created.",
		},
		[]string{"kind"},
	)
	fanoutRecipients = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cash_request_fanout_recipients",
			Help:    "Number of recipients selected per request.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cash_request_transitions_total",
			Help: "Total number of applied copy status transitions.",
		},
		[]string{"role", "to"},
	)
	conflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cash_request_conflicts_total",
			Help: "Total number of rejected transitions by operation.",
		},
		[]string{"operation"},
	)
	sweptCopiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cash_request_swept_copies_total",
			Help: "Total number of copies expired by the sweeper.",
		},
		[]string{"role"},
	)
	pushOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cash_push_outcomes_total",
			Help: "Push deliveries by notification type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	prunedTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cash_push_pruned_tokens_total",
			Help: "Total number of device tokens removed after permanent delivery failures.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		requestsCreatedTotal,
		fanoutRecipients,
		transitionsTotal,
		conflictsTotal,
		sweptCopiesTotal,
		pushOutcomesTotal,
		prunedTokensTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

// ObserveRequestCreated records a new request and the size of its fan-out.
func ObserveRequestCreated(kind string, recipients int) {
	requestsCreatedTotal.WithLabelValues(kind).Inc()
	fanoutRecipients.Observe(float64(recipients))
}

func IncTransition(role, to string) {
	transitionsTotal.WithLabelValues(role, to).Inc()
}

func IncConflict(operation string) {
	conflictsTotal.WithLabelValues(operation).Inc()
}

func AddSwept(role string, n int64) {
	if n > 0 {
		sweptCopiesTotal.WithLabelValues(role).Add(float64(n))
	}
}

func AddPushOutcome(notificationType, outcome string, n int) {
	if n > 0 {
		pushOutcomesTotal.WithLabelValues(notificationType, outcome).Add(float64(n))
	}
}

func AddPrunedTokens(n int64) {
	if n > 0 {
		prunedTokensTotal.Add(float64(n))
	}
}
