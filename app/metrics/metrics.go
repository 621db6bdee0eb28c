// Package metrics holds the Prometheus collectors for ingestion and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ingestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpe_ingest_runs_total",
			Help: "Ingestion runs by outcome.",
		},
		[]string{"outcome"},
	)

	ingestFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cpe_ingest_entries_fetched_total",
			Help: "Feed entries normalized across all ingestion runs.",
		},
	)

	ingestAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cpe_ingest_records_added_total",
			Help: "Records inserted by ingestion after deduplication.",
		},
	)

	ingestLastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cpe_ingest_last_run_timestamp_seconds",
			Help: "Unix time of the last finished ingestion run.",
		},
	)

	sourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpe_source_fetches_total",
			Help: "Feed source fetches by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(ingestRuns, ingestFetched, ingestAdded, ingestLastRun, sourceFetches, httpReqs, httpLat)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveIngest records one finished ingestion run.
func ObserveIngest(fetched, added int, err error) {
	ingestRuns.WithLabelValues(outcome(err)).Inc()
	ingestFetched.Add(float64(fetched))
	ingestAdded.Add(float64(added))
	ingestLastRun.SetToCurrentTime()
}

func ObserveSourceFetch(source string, err error) {
	sourceFetches.WithLabelValues(source, outcome(err)).Inc()
}

// Middleware counts requests and observes latency per registered route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
