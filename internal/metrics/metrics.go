package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parksafe",
		Name:      "messages_sent_total",
		Help:      "Messages stored, by message type.",
	}, []string{"type"})

	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parksafe",
		Name:      "alerts_raised_total",
		Help:      "Emergency alerts raised, by alert type.",
	}, []string{"type"})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parksafe",
		Name:      "realtime_connections",
		Help:      "Open websocket connections on this instance.",
	})

	ChangesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parksafe",
		Name:      "changes_delivered_total",
		Help:      "Change events written to websocket clients, by table.",
	}, []string{"table"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parksafe",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// GinMiddleware records request latency per route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
