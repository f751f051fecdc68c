package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposure(t *testing.T) {
	RunsTotal.Inc()
	CandidateErrors.Inc()
	PostsCreated.Inc()
	PointsAwarded.Add(12.5)
	ObserveRunDuration(time.Now().Add(-1500 * time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"pulseboard_runs_total",
		"pulseboard_candidate_errors_total",
		"pulseboard_posts_created_total",
		"pulseboard_points_awarded_total",
		"pulseboard_run_duration_seconds",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
