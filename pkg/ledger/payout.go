package ledger

import (
	"context"
	"errors"
)

// derivePayout writes the team payment implied by a salary record. The write is
// keyed on (team member, period, record) so replays return the existing payment
// instead of duplicating it.
func (service *Service) derivePayout(ctx context.Context, store Store, record GeneralRecord) (Payment, string, error) {
	existing, err := store.FindPaymentByRecord(ctx, record.ID)
	if err == nil {
		return existing, PayoutResultDuplicate, nil
	}
	if !errors.Is(err, ErrPaymentNotFound) {
		return Payment{}, PayoutResultFailed, err
	}
	payment := PayoutForRecord(record)
	now := service.now()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	stored, err := store.InsertPayment(ctx, payment)
	if err == nil {
		return stored, PayoutResultCreated, nil
	}
	if !errors.Is(err, ErrDuplicatePayout) {
		return Payment{}, PayoutResultFailed, err
	}
	existing, err = store.FindPaymentByRecord(ctx, record.ID)
	if err != nil {
		return Payment{}, PayoutResultFailed, err
	}
	return existing, PayoutResultDuplicate, nil
}

// PayoutForRecord builds the team payment a salary record derives. The record's
// occurrence date is both the payment date and the source of its period.
func PayoutForRecord(record GeneralRecord) Payment {
	description := record.Description
	if description == "" {
		description = defaultPayoutDescription
	}
	return Payment{
		Recipient:       record.Subject,
		Amount:          record.Amount.Abs(),
		Type:            PaymentTypeSalary,
		Period:          record.OccurredAt.UTC().Format(periodLayout),
		Description:     description,
		PaidAt:          record.OccurredAt,
		RelatedRecordID: record.ID,
	}
}
