package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const emptyAssetsJSON = "[]"

func (store *Store) InsertScript(ctx context.Context, script ledger.Script) (ledger.Script, error) {
	row := scriptRow(script)
	if row.Version == 0 {
		row.Version = 1
	}
	row.VoiceActorID = optionalString(script.VoiceActorID)
	row.CreatorID = optionalString(script.CreatorID)
	row.CreatedAt = script.CreatedAt.UTC()
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ledger.Script{}, wrapStoreError(errorSubjectScript, errorCodeInsert, err)
	}
	return mapScript(row)
}

func (store *Store) GetScript(ctx context.Context, scriptID string) (ledger.Script, error) {
	var row VoiceoverScript
	err := store.db.WithContext(ctx).Where("id = ?", scriptID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Script{}, ledger.ErrScriptNotFound
		}
		return ledger.Script{}, wrapStoreError(errorSubjectScript, errorCodeGet, err)
	}
	return mapScript(row)
}

// AssignVoiceActor claims the script with one conditional UPDATE so exactly one
// concurrent caller sees a row affected.
func (store *Store) AssignVoiceActor(ctx context.Context, scriptID string, voiceActorID string, at time.Time) error {
	result := store.db.WithContext(ctx).
		Model(&VoiceoverScript{}).
		Where("id = ? AND voice_actor_id IS NULL AND status <> ?", scriptID, string(ledger.ScriptArchived)).
		Updates(map[string]any{
			"voice_actor_id": voiceActorID,
			"updated_at":     at.UTC(),
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectScript, errorCodeAssign, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	current, err := store.GetScript(ctx, scriptID)
	if err != nil {
		return err
	}
	if current.Status == ledger.ScriptArchived {
		return wrapStoreError(errorSubjectScript, errorCodeAssign, ledger.ErrScriptArchived)
	}
	return wrapStoreError(errorSubjectScript, errorCodeAssign, ledger.ErrScriptAlreadyAssigned)
}

// UpdateScript writes the workflow columns under a version check. Ownership
// columns are written only by InsertScript and AssignVoiceActor.
func (store *Store) UpdateScript(ctx context.Context, script ledger.Script, expectedVersion int64) (ledger.Script, error) {
	row := scriptRow(script)
	result := store.db.WithContext(ctx).
		Model(&VoiceoverScript{}).
		Where("id = ? AND version = ?", script.ID, expectedVersion).
		Updates(map[string]any{
			"title":                row.Title,
			"text":                 row.Text,
			"status":               row.Status,
			"price":                row.Price,
			"voice_link":           row.VoiceLink,
			"producer_approved":    row.ProducerApproved,
			"producer_approved_at": row.ProducerApprovedAt,
			"producer_approved_by": row.ProducerApprovedBy,
			"admin_approved":       row.AdminApproved,
			"admin_approved_at":    row.AdminApprovedAt,
			"admin_approved_by":    row.AdminApprovedBy,
			"rejection_reason":     row.RejectionReason,
			"updated_at":           row.UpdatedAt,
			"version":              expectedVersion + 1,
		})
	if result.Error != nil {
		return ledger.Script{}, wrapStoreError(errorSubjectScript, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := store.GetScript(ctx, script.ID); err != nil {
			return ledger.Script{}, err
		}
		return ledger.Script{}, wrapStoreError(errorSubjectScript, errorCodeUpdate, ledger.ErrScriptModified)
	}
	return store.GetScript(ctx, script.ID)
}

func (store *Store) ListPaidScripts(ctx context.Context, window ledger.Window) ([]ledger.Script, error) {
	var rows []VoiceoverScript
	query := applyWindow(store.db.WithContext(ctx).Where("status = ?", string(ledger.ScriptPaid)), window, "updated_at")
	if err := query.Order("updated_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectScript, errorCodeList, err)
	}
	scripts := make([]ledger.Script, 0, len(rows))
	for _, row := range rows {
		script, err := mapScript(row)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

// InsertEditPack runs in its own savepoint; see InsertPayment.
func (store *Store) InsertEditPack(ctx context.Context, pack ledger.EditPack) (ledger.EditPack, error) {
	assets, err := encodeAssets(pack.AssetsLinks)
	if err != nil {
		return ledger.EditPack{}, wrapStoreError(errorSubjectEditPack, errorCodeInvalid, err)
	}
	row := EditPack{
		ID:          pack.ID,
		ScriptID:    pack.ScriptID,
		Token:       pack.Token,
		EditorNotes: optionalString(pack.EditorNotes),
		AssetsLinks: assets,
		CreatedAt:   pack.CreatedAt.UTC(),
		UpdatedAt:   pack.UpdatedAt.UTC(),
		ExpiresAt:   pack.ExpiresAt.UTC(),
	}
	err = store.db.WithContext(ctx).Transaction(func(savepoint *gorm.DB) error {
		return savepoint.Create(&row).Error
	})
	if err != nil {
		if isUniqueViolation(err, constraintEditPackScript, constraintEditPackToken) {
			return ledger.EditPack{}, wrapStoreError(errorSubjectEditPack, errorCodeDuplicate, ledger.ErrEditPackExists)
		}
		return ledger.EditPack{}, wrapStoreError(errorSubjectEditPack, errorCodeInsert, err)
	}
	return mapEditPack(row)
}

func (store *Store) GetEditPackByScript(ctx context.Context, scriptID string) (ledger.EditPack, error) {
	return store.getEditPack(ctx, "script_id = ?", scriptID)
}

func (store *Store) GetEditPackByToken(ctx context.Context, token string) (ledger.EditPack, error) {
	return store.getEditPack(ctx, "token = ?", token)
}

func (store *Store) UpdateEditPack(ctx context.Context, pack ledger.EditPack) (ledger.EditPack, error) {
	assets, err := encodeAssets(pack.AssetsLinks)
	if err != nil {
		return ledger.EditPack{}, wrapStoreError(errorSubjectEditPack, errorCodeInvalid, err)
	}
	result := store.db.WithContext(ctx).
		Model(&EditPack{}).
		Where("id = ?", pack.ID).
		Updates(map[string]any{
			"editor_notes": optionalString(pack.EditorNotes),
			"assets_links": assets,
			"updated_at":   pack.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return ledger.EditPack{}, wrapStoreError(errorSubjectEditPack, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return ledger.EditPack{}, ledger.ErrEditPackNotFound
	}
	return store.getEditPack(ctx, "id = ?", pack.ID)
}

func (store *Store) getEditPack(ctx context.Context, condition string, value string) (ledger.EditPack, error) {
	var row EditPack
	err := store.db.WithContext(ctx).Where(condition, value).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.EditPack{}, ledger.ErrEditPackNotFound
		}
		return ledger.EditPack{}, wrapStoreError(errorSubjectEditPack, errorCodeGet, err)
	}
	return mapEditPack(row)
}

// scriptRow maps the workflow columns; callers fill ownership columns.
func scriptRow(script ledger.Script) VoiceoverScript {
	row := VoiceoverScript{
		ID:               script.ID,
		Title:            script.Title,
		Text:             script.Text,
		Status:           string(script.Status),
		VoiceLink:        optionalString(script.VoiceLink),
		ProducerApproved: script.ProducerApproved(),
		AdminApproved:    script.AdminApproved(),
		RejectionReason:  optionalString(script.RejectionReason),
		Version:          script.Version,
		UpdatedAt:        script.UpdatedAt.UTC(),
	}
	if script.Price.IsPositive() {
		row.Price = decimal.NullDecimal{Decimal: script.Price, Valid: true}
	}
	if script.ProducerApproved() {
		row.ProducerApprovedAt = optionalTime(script.ProducerApprovedAt)
		row.ProducerApprovedBy = optionalString(script.ProducerApprovedBy)
	}
	if script.AdminApproved() {
		row.AdminApprovedAt = optionalTime(script.AdminApprovedAt)
		row.AdminApprovedBy = optionalString(script.AdminApprovedBy)
	}
	return row
}

func mapScript(row VoiceoverScript) (ledger.Script, error) {
	status, err := ledger.ParseScriptStatus(row.Status)
	if err != nil {
		return ledger.Script{}, wrapStoreError(errorSubjectScript, errorCodeInvalid, err)
	}
	stage, err := ledger.ApprovalStageFromFlags(row.ProducerApproved, row.AdminApproved)
	if err != nil {
		return ledger.Script{}, wrapStoreError(errorSubjectScript, errorCodeInvalid, err)
	}
	script := ledger.Script{
		ID:                 row.ID,
		Title:              row.Title,
		Text:               row.Text,
		Status:             status,
		Price:              decimal.Zero,
		VoiceLink:          stringValue(row.VoiceLink),
		CreatorID:          stringValue(row.CreatorID),
		VoiceActorID:       stringValue(row.VoiceActorID),
		Stage:              stage,
		ProducerApprovedAt: timeValue(row.ProducerApprovedAt),
		ProducerApprovedBy: stringValue(row.ProducerApprovedBy),
		AdminApprovedAt:    timeValue(row.AdminApprovedAt),
		AdminApprovedBy:    stringValue(row.AdminApprovedBy),
		RejectionReason:    stringValue(row.RejectionReason),
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
		Version:            row.Version,
	}
	if row.Price.Valid {
		script.Price = row.Price.Decimal
	}
	return script, nil
}

func encodeAssets(links []ledger.AssetLink) (datatypes.JSON, error) {
	if len(links) == 0 {
		return datatypes.JSON(emptyAssetsJSON), nil
	}
	encoded, err := json.Marshal(links)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

func mapEditPack(row EditPack) (ledger.EditPack, error) {
	var links []ledger.AssetLink
	if len(row.AssetsLinks) > 0 {
		if err := json.Unmarshal(row.AssetsLinks, &links); err != nil {
			return ledger.EditPack{}, wrapStoreError(errorSubjectEditPack, errorCodeInvalid, fmt.Errorf("decode assets: %w", err))
		}
	}
	return ledger.EditPack{
		ID:          row.ID,
		ScriptID:    row.ScriptID,
		Token:       row.Token,
		EditorNotes: stringValue(row.EditorNotes),
		AssetsLinks: links,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, nil
}
