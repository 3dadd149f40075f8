package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
)

const dateLayout = "2006-01-02"

var errInvalidTime = errors.New("expected RFC 3339 timestamp or YYYY-MM-DD date")

// flexibleAmount accepts a JSON number or a string such as "1.500,50".
type flexibleAmount string

func (amount *flexibleAmount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*amount = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*amount = flexibleAmount(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("amount must be a number or string: %w", err)
	}
	*amount = flexibleAmount(number.String())
	return nil
}

// parseInstant reads an RFC 3339 timestamp or a calendar date. A date used as an
// upper bound covers the whole day.
func parseInstant(raw string, endOfDay bool) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	if instant, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return instant.UTC(), nil
	}
	day, err := time.ParseInLocation(dateLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", errInvalidTime, raw)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}

type createRecordRequest struct {
	Type             string         `json:"type"`
	Category         string         `json:"category"`
	Amount           flexibleAmount `json:"amount"`
	Description      string         `json:"description"`
	OccurredAt       string         `json:"occurred_at"`
	StreamerID       string         `json:"streamer_id"`
	TeamMemberID     string         `json:"team_member_id"`
	ContentCreatorID string         `json:"content_creator_id"`
	VoiceActorID     string         `json:"voice_actor_id"`
	RelatedPaymentID string         `json:"related_payment_id"`
}

type recordPaymentRequest struct {
	RecipientKind string         `json:"recipient_kind"`
	RecipientID   string         `json:"recipient_id"`
	Amount        flexibleAmount `json:"amount"`
	Type          string         `json:"type"`
	Period        string         `json:"period"`
	Description   string         `json:"description"`
	PaidAt        string         `json:"paid_at"`
}

type createScriptRequest struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	CreatorID string `json:"creator_id"`
}

type voiceLinkRequest struct {
	VoiceLink string `json:"voice_link"`
}

type adminApproveRequest struct {
	Price flexibleAmount `json:"price"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type editPackRequest struct {
	EditorNotes string             `json:"editor_notes"`
	AssetsLinks []ledger.AssetLink `json:"assets_links"`
}

type entryPayload struct {
	ID          string     `json:"id"`
	Direction   string     `json:"direction"`
	Amount      string     `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	SubjectKind string     `json:"subject_kind,omitempty"`
	SubjectID   string     `json:"subject_id,omitempty"`
	SourceKind  string     `json:"source_kind"`
	SourceID    string     `json:"source_id"`
}

type summaryPayload struct {
	TotalIn  string `json:"total_in"`
	TotalOut string `json:"total_out"`
	Net      string `json:"net"`
}

type ledgerResponse struct {
	Entries         []entryPayload `json:"entries"`
	Summary         summaryPayload `json:"summary"`
	DegradedSources []string       `json:"degraded_sources"`
}

type recordPayload struct {
	ID               string     `json:"id"`
	EntryType        string     `json:"entry_type"`
	Direction        string     `json:"direction"`
	Amount           string     `json:"amount"`
	Category         string     `json:"category"`
	Description      string     `json:"description,omitempty"`
	OccurredAt       *time.Time `json:"occurred_at,omitempty"`
	SubjectKind      string     `json:"subject_kind,omitempty"`
	SubjectID        string     `json:"subject_id,omitempty"`
	RelatedPaymentID string     `json:"related_payment_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type paymentPayload struct {
	ID              string     `json:"id"`
	RecipientKind   string     `json:"recipient_kind"`
	RecipientID     string     `json:"recipient_id"`
	Amount          string     `json:"amount"`
	Type            string     `json:"type"`
	Period          string     `json:"period"`
	Description     string     `json:"description,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	RelatedRecordID string     `json:"related_record_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type scriptPayload struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Text               string     `json:"text"`
	Status             string     `json:"status"`
	Price              string     `json:"price,omitempty"`
	VoiceLink          string     `json:"voice_link,omitempty"`
	CreatorID          string     `json:"creator_id"`
	VoiceActorID       string     `json:"voice_actor_id,omitempty"`
	ProducerApproved   bool       `json:"producer_approved"`
	ProducerApprovedAt *time.Time `json:"producer_approved_at,omitempty"`
	ProducerApprovedBy string     `json:"producer_approved_by,omitempty"`
	AdminApproved      bool       `json:"admin_approved"`
	AdminApprovedAt    *time.Time `json:"admin_approved_at,omitempty"`
	AdminApprovedBy    string     `json:"admin_approved_by,omitempty"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type editPackPayload struct {
	Token       string             `json:"token"`
	ScriptID    string             `json:"script_id"`
	EditorNotes string             `json:"editor_notes,omitempty"`
	AssetsLinks []ledger.AssetLink `json:"assets_links"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
	Expired     bool               `json:"expired"`
}

type publicEditPackPayload struct {
	ScriptTitle string             `json:"script_title"`
	ScriptText  string             `json:"script_text"`
	VoiceLink   string             `json:"voice_link,omitempty"`
	EditorNotes string             `json:"editor_notes,omitempty"`
	AssetsLinks []ledger.AssetLink `json:"assets_links"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

func newLedgerResponse(view ledger.LedgerView) ledgerResponse {
	entries := make([]entryPayload, 0, len(view.Entries))
	for _, entry := range view.Entries {
		entries = append(entries, entryPayload{
			ID:          entry.ID,
			Direction:   string(entry.Direction),
			Amount:      entry.Amount.StringFixed(2),
			Category:    entry.Category,
			Description: entry.Description,
			Timestamp:   timePointer(entry.Timestamp),
			SubjectKind: string(entry.Subject.Kind),
			SubjectID:   entry.Subject.ID,
			SourceKind:  string(entry.SourceKind),
			SourceID:    entry.SourceID,
		})
	}
	degraded := make([]string, 0, len(view.DegradedSources))
	for _, source := range view.DegradedSources {
		degraded = append(degraded, string(source))
	}
	return ledgerResponse{
		Entries: entries,
		Summary: summaryPayload{
			TotalIn:  view.Summary.TotalIn.StringFixed(2),
			TotalOut: view.Summary.TotalOut.StringFixed(2),
			Net:      view.Summary.Net.StringFixed(2),
		},
		DegradedSources: degraded,
	}
}

func newRecordPayload(record ledger.GeneralRecord) recordPayload {
	return recordPayload{
		ID:               record.ID,
		EntryType:        string(record.EntryType),
		Direction:        string(record.Direction),
		Amount:           record.Amount.StringFixed(2),
		Category:         record.Category,
		Description:      record.Description,
		OccurredAt:       timePointer(record.OccurredAt),
		SubjectKind:      string(record.Subject.Kind),
		SubjectID:        record.Subject.ID,
		RelatedPaymentID: record.RelatedPaymentID,
		CreatedAt:        record.CreatedAt,
	}
}

func newPaymentPayload(payment ledger.Payment) paymentPayload {
	return paymentPayload{
		ID:              payment.ID,
		RecipientKind:   string(payment.Recipient.Kind),
		RecipientID:     payment.Recipient.ID,
		Amount:          payment.Amount.StringFixed(2),
		Type:            payment.Type,
		Period:          payment.Period,
		Description:     payment.Description,
		PaidAt:          timePointer(payment.PaidAt),
		RelatedRecordID: payment.RelatedRecordID,
		CreatedAt:       payment.CreatedAt,
	}
}

func newScriptPayload(script ledger.Script) scriptPayload {
	payload := scriptPayload{
		ID:                 script.ID,
		Title:              script.Title,
		Text:               script.Text,
		Status:             string(script.Status),
		VoiceLink:          script.VoiceLink,
		CreatorID:          script.CreatorID,
		VoiceActorID:       script.VoiceActorID,
		ProducerApproved:   script.ProducerApproved(),
		ProducerApprovedAt: timePointer(script.ProducerApprovedAt),
		ProducerApprovedBy: script.ProducerApprovedBy,
		AdminApproved:      script.AdminApproved(),
		AdminApprovedAt:    timePointer(script.AdminApprovedAt),
		AdminApprovedBy:    script.AdminApprovedBy,
		RejectionReason:    script.RejectionReason,
		UpdatedAt:          script.UpdatedAt,
	}
	if script.Price.IsPositive() {
		payload.Price = script.Price.StringFixed(2)
	}
	return payload
}

func newEditPackPayload(pack ledger.EditPack, expired bool) editPackPayload {
	links := pack.AssetsLinks
	if links == nil {
		links = []ledger.AssetLink{}
	}
	return editPackPayload{
		Token:       pack.Token,
		ScriptID:    pack.ScriptID,
		EditorNotes: pack.EditorNotes,
		AssetsLinks: links,
		CreatedAt:   pack.CreatedAt,
		ExpiresAt:   pack.ExpiresAt,
		Expired:     expired,
	}
}

func timePointer(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}
