package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a back-office operation or an absorbed failure.
type OperationLog struct {
	Operation string
	RecordID  string
	PaymentID string
	ScriptID  string
	ActorID   string
	Source    SourceKind
	Amount    decimal.Decimal
	Status    string
	Error     error
}

// MetricsRecorder receives counters for degraded reads, derived payouts and
// workflow transitions.
type MetricsRecorder interface {
	SourceFailed(source SourceKind)
	PayoutDerived(result string)
	ScriptTransition(transition string, result string)
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithMetrics wires a metrics recorder.
func WithMetrics(metrics MetricsRecorder) ServiceOption {
	return func(service *Service) {
		service.metrics = metrics
	}
}

// WithEditPackTTL overrides the share-link lifetime.
func WithEditPackTTL(ttl time.Duration) ServiceOption {
	return func(service *Service) {
		if ttl > 0 {
			service.editPackTTL = ttl
		}
	}
}

// WithTokenGenerator replaces the edit pack token source.
func WithTokenGenerator(generate func() (string, error)) ServiceOption {
	return func(service *Service) {
		if generate != nil {
			service.generateToken = generate
		}
	}
}

// WithEntrySources replaces the sources merged by Ledger.
func WithEntrySources(sources ...EntrySource) ServiceOption {
	return func(service *Service) {
		service.sources = sources
	}
}
