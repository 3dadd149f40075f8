package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CreateGeneralRecord validates and stores a manual record. A salary expense for a
// team member also writes its team payment in the same transaction, so either both
// rows exist or neither does.
func (service *Service) CreateGeneralRecord(ctx context.Context, input GeneralRecordInput) (GeneralRecord, error) {
	record, err := service.buildGeneralRecord(input)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationCreateRecord, Error: err})
		return GeneralRecord{}, err
	}
	var stored GeneralRecord
	var payout Payment
	payoutResult := ""
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		inserted, err := transactionStore.InsertGeneralRecord(ctx, record)
		if err != nil {
			return err
		}
		stored = inserted
		if !DerivesPayout(inserted) {
			return nil
		}
		payment, result, err := service.derivePayout(ctx, transactionStore, inserted)
		payoutResult = result
		if err != nil {
			return err
		}
		payout = payment
		return nil
	})
	if payoutResult != "" {
		service.recordPayout(payoutResult)
		service.logOperation(ctx, OperationLog{
			Operation: operationDerivePayout,
			RecordID:  stored.ID,
			PaymentID: payout.ID,
			Amount:    record.Amount,
			Error:     operationError,
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateRecord,
		RecordID:  stored.ID,
		Amount:    record.Amount,
		Error:     operationError,
	})
	if operationError != nil {
		return GeneralRecord{}, operationError
	}
	return stored, nil
}

// RederivePayout replays payout derivation for an existing record. An already
// derived payment is returned as is.
func (service *Service) RederivePayout(ctx context.Context, rawRecordID string) (Payment, error) {
	recordID, err := requireID(rawRecordID, ErrInvalidRecordID)
	if err != nil {
		return Payment{}, err
	}
	record, err := service.store.GetGeneralRecord(ctx, recordID)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationRederivePayout, RecordID: recordID, Error: err})
		return Payment{}, err
	}
	if !DerivesPayout(record) {
		service.logOperation(ctx, OperationLog{Operation: operationRederivePayout, RecordID: recordID, Error: ErrNotSalaryPayout})
		return Payment{}, ErrNotSalaryPayout
	}
	payment, result, err := service.derivePayout(ctx, service.store, record)
	service.recordPayout(result)
	service.logOperation(ctx, OperationLog{
		Operation: operationRederivePayout,
		RecordID:  recordID,
		PaymentID: payment.ID,
		Amount:    record.Amount,
		Error:     err,
	})
	return payment, err
}

// RecordPayment stores a streamer or team payment, paid or unpaid.
func (service *Service) RecordPayment(ctx context.Context, input PaymentInput) (Payment, error) {
	payment, err := service.buildPayment(input)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationRecordPayment, Error: err})
		return Payment{}, err
	}
	stored, err := service.store.InsertPayment(ctx, payment)
	service.logOperation(ctx, OperationLog{
		Operation: operationRecordPayment,
		PaymentID: stored.ID,
		Amount:    payment.Amount,
		Error:     err,
	})
	return stored, err
}

// MarkPaymentPaid flips an unpaid payment to paid. Paid payments never revert.
func (service *Service) MarkPaymentPaid(ctx context.Context, recipientKind SubjectKind, rawPaymentID string) (Payment, error) {
	if recipientKind != SubjectStreamer && recipientKind != SubjectTeamMember {
		return Payment{}, fmt.Errorf("%w: %q", ErrInvalidPaymentKind, recipientKind)
	}
	paymentID, err := requireID(rawPaymentID, ErrInvalidPaymentID)
	if err != nil {
		return Payment{}, err
	}
	payment, err := service.store.MarkPaymentPaid(ctx, recipientKind, paymentID, service.now())
	service.logOperation(ctx, OperationLog{
		Operation: operationMarkPaymentPaid,
		PaymentID: paymentID,
		Amount:    payment.Amount,
		Error:     err,
	})
	return payment, err
}

// IsSalaryCategory reports whether a category names a salary, case-insensitively.
func IsSalaryCategory(category string) bool {
	lowered := strings.ToLower(category)
	for _, marker := range salaryCategoryMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// DerivesPayout reports whether storing record must spawn a team payment.
// Records that already reference a payment were created from that payment.
func DerivesPayout(record GeneralRecord) bool {
	return record.EntryType == EntryPayout &&
		record.Subject.Kind == SubjectTeamMember &&
		record.RelatedPaymentID == "" &&
		IsSalaryCategory(record.Category)
}

func (service *Service) buildGeneralRecord(input GeneralRecordInput) (GeneralRecord, error) {
	entryType, err := ParseEntryType(input.Type)
	if err != nil {
		return GeneralRecord{}, err
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return GeneralRecord{}, ErrMissingCategory
	}
	amount, err := ParseAmount(input.Amount)
	if err != nil {
		return GeneralRecord{}, err
	}
	amount = amount.Abs()
	if amount.IsZero() {
		return GeneralRecord{}, fmt.Errorf("%w: zero", ErrInvalidAmount)
	}
	if input.OccurredAt.IsZero() {
		return GeneralRecord{}, ErrMissingOccurredAt
	}
	subject, err := input.Subjects.Subject()
	if err != nil {
		return GeneralRecord{}, err
	}
	if entryType == EntryExpense && subject.Kind == SubjectTeamMember && IsSalaryCategory(category) {
		entryType = EntryPayout
	}
	occurredAt := input.OccurredAt.UTC()
	now := service.now()
	return GeneralRecord{
		EntryType:        entryType,
		Direction:        entryType.Direction(),
		Amount:           amount,
		Category:         category,
		Description:      strings.TrimSpace(input.Description),
		OccurredAt:       occurredAt,
		LegacyDate:       occurredAt,
		Subject:          subject,
		RelatedPaymentID: strings.TrimSpace(input.RelatedPaymentID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (service *Service) buildPayment(input PaymentInput) (Payment, error) {
	if input.Recipient.Kind != SubjectStreamer && input.Recipient.Kind != SubjectTeamMember {
		return Payment{}, fmt.Errorf("%w: %q", ErrInvalidPaymentKind, input.Recipient.Kind)
	}
	recipient, err := NewSubject(input.Recipient.Kind, input.Recipient.ID)
	if err != nil {
		return Payment{}, err
	}
	amount, err := ParseAmount(input.Amount)
	if err != nil {
		return Payment{}, err
	}
	if !amount.IsPositive() {
		return Payment{}, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	period := strings.TrimSpace(input.Period)
	if _, err := time.Parse(periodLayout, period); err != nil {
		return Payment{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, input.Period)
	}
	paymentType := strings.ToLower(strings.TrimSpace(input.Type))
	if paymentType == "" {
		paymentType = PaymentTypeSalary
	}
	now := service.now()
	var paidAt time.Time
	if !input.PaidAt.IsZero() {
		paidAt = input.PaidAt.UTC()
	}
	return Payment{
		Recipient:   recipient,
		Amount:      amount,
		Type:        paymentType,
		Period:      period,
		Description: strings.TrimSpace(input.Description),
		PaidAt:      paidAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
