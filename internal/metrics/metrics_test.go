package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveStage("generating", 120*time.Millisecond, nil)
	r.ObserveStage("generating", time.Second, errors.New("boom"))
	r.ObserveCycle("text", "ready")
	r.ObserveCycle("text", "ready")
	r.ObserveCycle("audio", "failed")

	if got := testutil.ToFloat64(r.stageErrors.WithLabelValues("generating")); got != 1 {
		t.Fatalf("expected 1 stage error, got %v", got)
	}
	if got := testutil.ToFloat64(r.cycles.WithLabelValues("text", "ready")); got != 2 {
		t.Fatalf("expected 2 ready text cycles, got %v", got)
	}
	if got := testutil.CollectAndCount(r.stageDuration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg).ObserveCycle("audio", "ready")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `voice_cycles_total{outcome="ready",source="audio"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", w.Body.String())
	}
}
