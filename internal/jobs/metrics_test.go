package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if err := m.Track("audit:cleanup").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("audit:cleanup").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("audit:cleanup", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("audit:cleanup")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestAddPrunedIgnoresEmptyRuns(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddPruned(0)
	m.AddPruned(5)
	if got := testutil.ToFloat64(m.pruned); got != 5 {
		t.Fatalf("expected 5 pruned rows, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.AddPruned(3)
	if err := nilMetrics.Track("x").End(nil); err != nil {
		t.Fatalf("nil metrics should be inert: %v", err)
	}
}
