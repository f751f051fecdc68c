package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_runs_total",
		Help: "Total reconciliation runs started",
	})
	RunErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_run_errors_total",
		Help: "Total reconciliation runs that failed before processing",
	})
	CandidateErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_candidate_errors_total",
		Help: "Total per-candidate processing failures (run continued)",
	})
	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_posts_created_total",
		Help: "Total newly tracked posts",
	})
	PostsUpdated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_posts_updated_total",
		Help: "Total snapshot updates of tracked posts",
	})
	PointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseboard_points_awarded_total",
		Help: "Total points written to the score ledger",
	})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulseboard_run_duration_seconds",
		Help:    "Reconciliation run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(RunsTotal, RunErrors, CandidateErrors, PostsCreated, PostsUpdated, PointsAwarded, RunDuration)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveRunDuration records a run duration.
func ObserveRunDuration(start time.Time) {
	RunDuration.Observe(time.Since(start).Seconds())
}
