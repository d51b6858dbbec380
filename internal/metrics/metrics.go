// Package metrics declares the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// httpRequestDuration tracks request latency by route
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sgm_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// Transitions counts state changes by entity and target state
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgm_state_transitions_total",
		Help: "Total state transitions by entity and target status",
	}, []string{"entity", "status"})

	// AlertsRaised counts environment alerts by severity
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgm_environment_alerts_total",
		Help: "Total environment alerts raised by severity",
	}, []string{"severity"})

	// ReportsGenerated counts reports by type and format
	ReportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgm_reports_generated_total",
		Help: "Total reports generated by type and format",
	}, []string{"type", "format"})

	// EmailsSent counts email deliveries by result
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgm_emails_total",
		Help: "Total email delivery attempts by result",
	}, []string{"result"})
)

// Transition records a state change.
func Transition(entity, status string) {
	Transitions.WithLabelValues(entity, status).Inc()
}

// Middleware observes request duration under the matched route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
