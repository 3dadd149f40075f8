package ledger

import (
	"context"
	"fmt"
	"time"
)

// Service contains the back-office domain logic over a Store.
type Service struct {
	store         Store
	nowFn         func() time.Time
	logger        OperationLogger
	metrics       MetricsRecorder
	editPackTTL   time.Duration
	generateToken func() (string, error)
	sources       []EntrySource
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:         store,
		nowFn:         now,
		editPackTTL:   DefaultEditPackTTL,
		generateToken: NewEditPackToken,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

func (service *Service) now() time.Time {
	return service.nowFn().UTC()
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func (service *Service) recordSourceFailure(source SourceKind) {
	if service.metrics != nil {
		service.metrics.SourceFailed(source)
	}
}

func (service *Service) recordPayout(result string) {
	if service.metrics != nil {
		service.metrics.PayoutDerived(result)
	}
}

func (service *Service) recordTransition(transition string, err error) {
	if service.metrics == nil {
		return
	}
	service.metrics.ScriptTransition(transition, transitionResult(err))
}
