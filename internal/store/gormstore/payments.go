package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"gorm.io/gorm"
)

// InsertPayment writes to payments or team_payments by recipient kind. The
// insert runs in its own savepoint so a natural-key conflict leaves an outer
// transaction usable for the follow-up lookup.
func (store *Store) InsertPayment(ctx context.Context, payment ledger.Payment) (ledger.Payment, error) {
	switch payment.Recipient.Kind {
	case ledger.SubjectStreamer:
		row := StreamerPayment{
			ID:          payment.ID,
			StreamerID:  payment.Recipient.ID,
			Amount:      payment.Amount,
			Type:        payment.Type,
			Period:      payment.Period,
			Description: optionalString(payment.Description),
			PaidAt:      optionalTime(payment.PaidAt),
			CreatedAt:   payment.CreatedAt.UTC(),
			UpdatedAt:   payment.UpdatedAt.UTC(),
		}
		if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
			return ledger.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInsert, err)
		}
		return mapStreamerPayment(row), nil
	case ledger.SubjectTeamMember:
		row := TeamPayment{
			ID:              payment.ID,
			TeamMemberID:    payment.Recipient.ID,
			Amount:          payment.Amount,
			Type:            payment.Type,
			Period:          payment.Period,
			Description:     optionalString(payment.Description),
			PaidAt:          optionalTime(payment.PaidAt),
			RelatedRecordID: optionalString(payment.RelatedRecordID),
			CreatedAt:       payment.CreatedAt.UTC(),
			UpdatedAt:       payment.UpdatedAt.UTC(),
		}
		err := store.db.WithContext(ctx).Transaction(func(savepoint *gorm.DB) error {
			return savepoint.Create(&row).Error
		})
		if err != nil {
			if isUniqueViolation(err, constraintTeamPaymentNaturalKey) {
				return ledger.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeDuplicate, ledger.ErrDuplicatePayout)
			}
			return ledger.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInsert, err)
		}
		return mapTeamPayment(row), nil
	default:
		return ledger.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, fmt.Errorf("%w: %q", ledger.ErrInvalidPaymentKind, payment.Recipient.Kind))
	}
}

func (store *Store) FindPaymentByRecord(ctx context.Context, recordID string) (ledger.Payment, error) {
	var row TeamPayment
	err := store.db.WithContext(ctx).Where("related_record_id = ?", recordID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Payment{}, ledger.ErrPaymentNotFound
		}
		return ledger.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeLookup, err)
	}
	return mapTeamPayment(row), nil
}

// MarkPaymentPaid sets paid_at only while it is still NULL.
func (store *Store) MarkPaymentPaid(ctx context.Context, recipientKind ledger.SubjectKind, paymentID string, paidAt time.Time) (ledger.Payment, error) {
	model, err := paymentModel(recipientKind)
	if err != nil {
		return ledger.Payment{}, err
	}
	result := store.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND paid_at IS NULL", paymentID).
		Updates(map[string]any{"paid_at": paidAt.UTC(), "updated_at": paidAt.UTC()})
	if result.Error != nil {
		return ledger.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeMarkPaid, result.Error)
	}
	payment, err := store.getPayment(ctx, recipientKind, paymentID)
	if err != nil {
		return ledger.Payment{}, err
	}
	if result.RowsAffected == 0 {
		return ledger.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeMarkPaid, ledger.ErrPaymentAlreadyPaid)
	}
	return payment, nil
}

func (store *Store) ListPayments(ctx context.Context, recipientKind ledger.SubjectKind, window ledger.Window) ([]ledger.Payment, error) {
	query := applyWindow(store.db.WithContext(ctx), window, "paid_at", "created_at").Order("created_at ASC").Order("id ASC")
	switch recipientKind {
	case ledger.SubjectStreamer:
		var rows []StreamerPayment
		if err := query.Find(&rows).Error; err != nil {
			return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
		}
		payments := make([]ledger.Payment, 0, len(rows))
		for _, row := range rows {
			payments = append(payments, mapStreamerPayment(row))
		}
		return payments, nil
	case ledger.SubjectTeamMember:
		var rows []TeamPayment
		if err := query.Find(&rows).Error; err != nil {
			return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
		}
		payments := make([]ledger.Payment, 0, len(rows))
		for _, row := range rows {
			payments = append(payments, mapTeamPayment(row))
		}
		return payments, nil
	default:
		return nil, wrapStoreError(errorSubjectPayment, errorCodeInvalid, fmt.Errorf("%w: %q", ledger.ErrInvalidPaymentKind, recipientKind))
	}
}

func (store *Store) getPayment(ctx context.Context, recipientKind ledger.SubjectKind, paymentID string) (ledger.Payment, error) {
	var (
		payment ledger.Payment
		err     error
	)
	switch recipientKind {
	case ledger.SubjectStreamer:
		var row StreamerPayment
		err = store.db.WithContext(ctx).Where("id = ?", paymentID).Take(&row).Error
		payment = mapStreamerPayment(row)
	default:
		var row TeamPayment
		err = store.db.WithContext(ctx).Where("id = ?", paymentID).Take(&row).Error
		payment = mapTeamPayment(row)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Payment{}, ledger.ErrPaymentNotFound
		}
		return ledger.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, err)
	}
	return payment, nil
}

func paymentModel(recipientKind ledger.SubjectKind) (any, error) {
	switch recipientKind {
	case ledger.SubjectStreamer:
		return &StreamerPayment{}, nil
	case ledger.SubjectTeamMember:
		return &TeamPayment{}, nil
	default:
		return nil, wrapStoreError(errorSubjectPayment, errorCodeInvalid, fmt.Errorf("%w: %q", ledger.ErrInvalidPaymentKind, recipientKind))
	}
}

func mapStreamerPayment(row StreamerPayment) ledger.Payment {
	return ledger.Payment{
		ID:          row.ID,
		Recipient:   ledger.Subject{Kind: ledger.SubjectStreamer, ID: row.StreamerID},
		Amount:      row.Amount,
		Type:        row.Type,
		Period:      row.Period,
		Description: stringValue(row.Description),
		PaidAt:      timeValue(row.PaidAt),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func mapTeamPayment(row TeamPayment) ledger.Payment {
	return ledger.Payment{
		ID:              row.ID,
		Recipient:       ledger.Subject{Kind: ledger.SubjectTeamMember, ID: row.TeamMemberID},
		Amount:          row.Amount,
		Type:            row.Type,
		Period:          row.Period,
		Description:     stringValue(row.Description),
		PaidAt:          timeValue(row.PaidAt),
		RelatedRecordID: stringValue(row.RelatedRecordID),
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}
