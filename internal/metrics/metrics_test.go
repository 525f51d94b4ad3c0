package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector("test")
	if c == nil {
		t.Fatal("NewCollector returned nil")
	}
	if c.registry == nil {
		t.Error("registry should not be nil")
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	// Should not panic
	c.RecordTransaction("deposit", "completed")
	c.RecordDepositOperation("activate", nil)
	c.RecordSweep(time.Second, nil)
	c.RecordPayout("compound", decimal.NewFromInt(1))
	c.RecordCommission("1", decimal.NewFromInt(1))
	c.RecordFeedEvent("queued")
}

func TestCollector_PayoutMetrics(t *testing.T) {
	c := NewCollector("test")

	c.RecordSweep(20*time.Millisecond, nil)
	c.RecordSweep(5*time.Millisecond, errors.New("sweep failed"))
	c.RecordPayout("accumulate", decimal.NewFromInt(160))
	c.RecordPayout("compound", decimal.RequireFromString("40.5"))
	c.RecordPayout("failed", decimal.Zero)

	if got := promtest.ToFloat64(c.sweepRuns.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed sweep, got %v", got)
	}
	if got := promtest.ToFloat64(c.profitCredited); got != 200.5 {
		t.Errorf("expected profit 200.5, got %v", got)
	}
	if got := promtest.ToFloat64(c.depositsProcessed.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected 1 failed deposit, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.RecordCommission("1", decimal.NewFromInt(20))
	c.RecordFeedEvent("dropped")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `test_referral_commission_total{level="1"} 20`) {
		t.Errorf("commission metric missing from output")
	}
	if !strings.Contains(body, `test_feed_events_total{result="dropped"} 1`) {
		t.Errorf("feed metric missing from output")
	}
}
