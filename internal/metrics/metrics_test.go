package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndHandler(t *testing.T) {
	m := New("questboard")
	m.BoardCreated()
	m.BonusDraw("created")
	m.BonusDraw("created")
	m.ProofSubmitted("", "rejected")

	if got := testutil.ToFloat64(m.boardsCreated); got != 1 {
		t.Fatalf("expected 1 board, got %v", got)
	}
	if got := testutil.ToFloat64(m.bonusDraws.WithLabelValues("created")); got != 2 {
		t.Fatalf("expected 2 bonus draws, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `questboard_proof_submissions_total{kind="unknown",outcome="rejected"} 1`) {
		t.Fatalf("expected proof counter in exposition, got:\n%s", rec.Body.String())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.BoardCreated()
	m.ConflictResolved("board")
	m.BonusDraw("created")
	m.ProofSubmitted("image", "stored")
}
