package metrics

import (
	"strconv"
	"time"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

const unknownLabel = "unknown"

// Recorder exports back-office counters and request timings to Prometheus.
type Recorder struct {
	sourceFailures    *prometheus.CounterVec
	payoutDerivations *prometheus.CounterVec
	scriptTransitions *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

var _ ledger.MetricsRecorder = (*Recorder)(nil)

// NewRecorder registers the back-office metrics on the provided registerer.
// A nil registerer yields a Recorder that drops every observation.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return &Recorder{}
	}
	sourceFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_source_failures_total",
		Help: "Ledger sources that failed to load and were left out of a read.",
	}, []string{"source"})
	payoutDerivations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_derivations_total",
		Help: "Team payment derivations from salary records by result.",
	}, []string{"result"})
	scriptTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "script_transitions_total",
		Help: "Voiceover script workflow actions by result.",
	}, []string{"transition", "result"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
	reg.MustRegister(sourceFailures, payoutDerivations, scriptTransitions, requestDuration)
	return &Recorder{
		sourceFailures:    sourceFailures,
		payoutDerivations: payoutDerivations,
		scriptTransitions: scriptTransitions,
		requestDuration:   requestDuration,
	}
}

// SourceFailed counts a degraded ledger source.
func (r *Recorder) SourceFailed(source ledger.SourceKind) {
	if r == nil || r.sourceFailures == nil {
		return
	}
	r.sourceFailures.WithLabelValues(normalizeLabel(string(source))).Inc()
}

// PayoutDerived counts one derivation attempt.
func (r *Recorder) PayoutDerived(result string) {
	if r == nil || r.payoutDerivations == nil {
		return
	}
	r.payoutDerivations.WithLabelValues(normalizeLabel(result)).Inc()
}

// ScriptTransition counts one workflow action.
func (r *Recorder) ScriptTransition(transition string, result string) {
	if r == nil || r.scriptTransitions == nil {
		return
	}
	r.scriptTransitions.WithLabelValues(normalizeLabel(transition), normalizeLabel(result)).Inc()
}

// ObserveRequest records the duration of one HTTP request.
func (r *Recorder) ObserveRequest(route string, status int, duration time.Duration) {
	if r == nil || r.requestDuration == nil {
		return
	}
	r.requestDuration.WithLabelValues(normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return unknownLabel
	}
	return value
}
