package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"path", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "market_auth_attempts_total", Help: "Credential submissions by operation and result"},
		[]string{"op", "result"},
	)
	listingViews = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "market_listing_views_total", Help: "Listing detail renders by variant"},
		[]string{"variant"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, authAttempts, listingViews) }

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpReqTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// ObserveAuth op: signin/signup/confirm；result: ok 或错误种类
func ObserveAuth(op, result string) { authAttempts.WithLabelValues(op, result).Inc() }

// ObserveListingView variant: owner/public/not_found/error
func ObserveListingView(variant string) { listingViews.WithLabelValues(variant).Inc() }
