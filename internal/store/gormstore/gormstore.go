package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	constraintTeamPaymentNaturalKey = "uniq_team_payments_natural_key"
	constraintEditPackScript        = "uniq_edit_packs_script"
	constraintEditPackToken         = "uniq_edit_packs_token"
	pgUniqueViolationCode           = "23505"
	sqliteConstraintCode            = 19
	errorOperationStore             = "store"
	errorSubjectRecord              = "record"
	errorSubjectPayment             = "payment"
	errorSubjectScript              = "script"
	errorSubjectEditPack            = "edit_pack"
	errorCodeAssign                 = "assign"
	errorCodeDuplicate              = "duplicate"
	errorCodeGet                    = "get"
	errorCodeInsert                 = "insert"
	errorCodeInvalid                = "invalid"
	errorCodeList                   = "list"
	errorCodeLookup                 = "lookup"
	errorCodeMarkPaid               = "mark_paid"
	errorCodeUpdate                 = "update"
)

// Store implements ledger.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) InsertGeneralRecord(ctx context.Context, record ledger.GeneralRecord) (ledger.GeneralRecord, error) {
	refs := record.Subject.Refs()
	row := GeneralRecord{
		ID:               record.ID,
		EntryType:        string(record.EntryType),
		Direction:        string(record.Direction),
		Amount:           record.Amount,
		Category:         record.Category,
		Description:      optionalString(record.Description),
		OccurredAt:       optionalTime(record.OccurredAt),
		LegacyDate:       optionalTime(record.LegacyDate),
		StreamerID:       optionalString(refs.StreamerID),
		TeamMemberID:     optionalString(refs.TeamMemberID),
		ContentCreatorID: optionalString(refs.ContentCreatorID),
		VoiceActorID:     optionalString(refs.VoiceActorID),
		RelatedPaymentID: optionalString(record.RelatedPaymentID),
		CreatedAt:        record.CreatedAt.UTC(),
		UpdatedAt:        record.UpdatedAt.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ledger.GeneralRecord{}, wrapStoreError(errorSubjectRecord, errorCodeInsert, err)
	}
	return mapGeneralRecord(row)
}

func (store *Store) GetGeneralRecord(ctx context.Context, recordID string) (ledger.GeneralRecord, error) {
	var row GeneralRecord
	err := store.db.WithContext(ctx).Where("id = ?", recordID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.GeneralRecord{}, ledger.ErrRecordNotFound
		}
		return ledger.GeneralRecord{}, wrapStoreError(errorSubjectRecord, errorCodeGet, err)
	}
	return mapGeneralRecord(row)
}

func (store *Store) ListGeneralRecords(ctx context.Context, window ledger.Window) ([]ledger.GeneralRecord, error) {
	var rows []GeneralRecord
	query := applyWindow(store.db.WithContext(ctx), window, "occurred_at", "created_at")
	if err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectRecord, errorCodeList, err)
	}
	records := make([]ledger.GeneralRecord, 0, len(rows))
	for _, row := range rows {
		record, err := mapGeneralRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return ledger.WrapError(errorOperationStore, subject, code, err)
}

// applyWindow narrows a query to rows where any of columns falls inside the window.
func applyWindow(query *gorm.DB, window ledger.Window, columns ...string) *gorm.DB {
	if window.Unbounded() || len(columns) == 0 {
		return query
	}
	conditions := make([]string, 0, len(columns))
	arguments := make([]any, 0, 2*len(columns))
	for _, column := range columns {
		switch {
		case !window.From.IsZero() && !window.To.IsZero():
			conditions = append(conditions, "("+column+" >= ? AND "+column+" <= ?)")
			arguments = append(arguments, window.From.UTC(), window.To.UTC())
		case !window.From.IsZero():
			conditions = append(conditions, column+" >= ?")
			arguments = append(arguments, window.From.UTC())
		default:
			conditions = append(conditions, column+" <= ?")
			arguments = append(arguments, window.To.UTC())
		}
	}
	return query.Where("("+strings.Join(conditions, " OR ")+")", arguments...)
}

func mapGeneralRecord(row GeneralRecord) (ledger.GeneralRecord, error) {
	entryType, err := ledger.ParseEntryType(row.EntryType)
	if err != nil {
		return ledger.GeneralRecord{}, wrapStoreError(errorSubjectRecord, errorCodeInvalid, err)
	}
	subject, err := ledger.SubjectRefs{
		StreamerID:       stringValue(row.StreamerID),
		TeamMemberID:     stringValue(row.TeamMemberID),
		ContentCreatorID: stringValue(row.ContentCreatorID),
		VoiceActorID:     stringValue(row.VoiceActorID),
	}.Subject()
	if err != nil {
		return ledger.GeneralRecord{}, wrapStoreError(errorSubjectRecord, errorCodeInvalid, err)
	}
	return ledger.GeneralRecord{
		ID:               row.ID,
		EntryType:        entryType,
		Direction:        ledger.Direction(row.Direction),
		Amount:           row.Amount,
		Category:         row.Category,
		Description:      stringValue(row.Description),
		OccurredAt:       timeValue(row.OccurredAt),
		LegacyDate:       timeValue(row.LegacyDate),
		Subject:          subject,
		RelatedPaymentID: stringValue(row.RelatedPaymentID),
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func timeValue(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return value.UTC()
}

// isUniqueViolation reports a unique-key conflict. On PostgreSQL the violated
// constraint must be one of constraints when any are given.
func isUniqueViolation(err error, constraints ...string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolationCode {
			return false
		}
		if len(constraints) == 0 {
			return true
		}
		for _, constraint := range constraints {
			if pgErr.ConstraintName == constraint {
				return true
			}
		}
		return false
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
