package ledger

import (
	"context"
	"time"
)

// Store persists back-office records. Implementations must report the domain
// sentinels below so the service can branch on errors.Is.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	// InsertGeneralRecord assigns an id when empty and returns the stored record.
	InsertGeneralRecord(ctx context.Context, record GeneralRecord) (GeneralRecord, error)
	// GetGeneralRecord returns ErrRecordNotFound for unknown ids.
	GetGeneralRecord(ctx context.Context, recordID string) (GeneralRecord, error)
	ListGeneralRecords(ctx context.Context, window Window) ([]GeneralRecord, error)

	// InsertPayment routes by recipient kind and returns ErrDuplicatePayout when
	// (recipient, period, related record) already exists.
	InsertPayment(ctx context.Context, payment Payment) (Payment, error)
	// FindPaymentByRecord returns the team payment derived from recordID or ErrPaymentNotFound.
	FindPaymentByRecord(ctx context.Context, recordID string) (Payment, error)
	// MarkPaymentPaid sets paidAt only while it is unset: ErrPaymentAlreadyPaid otherwise.
	MarkPaymentPaid(ctx context.Context, recipientKind SubjectKind, paymentID string, paidAt time.Time) (Payment, error)
	ListPayments(ctx context.Context, recipientKind SubjectKind, window Window) ([]Payment, error)

	InsertScript(ctx context.Context, script Script) (Script, error)
	// GetScript returns ErrScriptNotFound for unknown ids.
	GetScript(ctx context.Context, scriptID string) (Script, error)
	// AssignVoiceActor claims an unassigned, non-archived script in one conditional
	// write; the loser receives ErrScriptAlreadyAssigned.
	AssignVoiceActor(ctx context.Context, scriptID string, voiceActorID string, at time.Time) error
	// UpdateScript writes the mutable workflow columns only when the stored version
	// equals expectedVersion, then increments it; ErrScriptModified otherwise.
	UpdateScript(ctx context.Context, script Script, expectedVersion int64) (Script, error)
	ListPaidScripts(ctx context.Context, window Window) ([]Script, error)

	// InsertEditPack returns ErrEditPackExists when the script already has a pack.
	InsertEditPack(ctx context.Context, pack EditPack) (EditPack, error)
	GetEditPackByScript(ctx context.Context, scriptID string) (EditPack, error)
	GetEditPackByToken(ctx context.Context, token string) (EditPack, error)
	UpdateEditPack(ctx context.Context, pack EditPack) (EditPack, error)
}
