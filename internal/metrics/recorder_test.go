package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecorderExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := NewRecorder(reg)
	recorder.SourceFailed(ledger.SourceTeamPayment)
	recorder.SourceFailed(ledger.SourceTeamPayment)
	recorder.PayoutDerived(ledger.PayoutResultDuplicate)
	recorder.ScriptTransition("assign", ledger.TransitionResultConflict)
	recorder.ObserveRequest("/api/ledger", 200, 150*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ledger_source_failures_total", "source", string(ledger.SourceTeamPayment)); err != nil {
		t.Fatalf("fetch source failures: %v", err)
	} else if got != 2 {
		t.Fatalf("expected source failures=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payout_derivations_total", "result", ledger.PayoutResultDuplicate); err != nil {
		t.Fatalf("fetch payouts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected payouts=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "script_transitions_total", "result", ledger.TransitionResultConflict); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "http_request_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected one request histogram series")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestRecorderWithoutRegistererDropsObservations(t *testing.T) {
	recorder := NewRecorder(nil)
	recorder.SourceFailed(ledger.SourceRecord)
	recorder.PayoutDerived(ledger.PayoutResultCreated)
	recorder.ScriptTransition("pay", ledger.TransitionResultOK)
	recorder.ObserveRequest("/healthz", 200, time.Millisecond)

	var nilRecorder *Recorder
	nilRecorder.SourceFailed(ledger.SourceRecord)
}

func TestNormalizeLabel(t *testing.T) {
	if got := normalizeLabel(""); got != unknownLabel {
		t.Fatalf("expected %q, got %q", unknownLabel, got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
