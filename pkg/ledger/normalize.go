package ledger

import (
	"context"
	"strings"
)

// EntrySource loads one kind of ledger source and normalizes it into entries.
type EntrySource interface {
	Kind() SourceKind
	Entries(ctx context.Context, store Store, window Window) ([]Entry, error)
}

// DefaultEntrySources lists the four sources merged by Ledger.
func DefaultEntrySources() []EntrySource {
	return []EntrySource{
		recordSource{},
		paymentSource{recipientKind: SubjectStreamer},
		paymentSource{recipientKind: SubjectTeamMember},
		voiceoverSource{},
	}
}

type recordSource struct{}

func (recordSource) Kind() SourceKind {
	return SourceRecord
}

func (source recordSource) Entries(ctx context.Context, store Store, window Window) ([]Entry, error) {
	records, err := store.ListGeneralRecords(ctx, window)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		// Either date inside the window admits the record.
		if !window.Unbounded() && !window.Contains(record.OccurredAt) && !window.Contains(record.CreatedAt) {
			continue
		}
		entries = append(entries, NormalizeRecord(record))
	}
	return entries, nil
}

type paymentSource struct {
	recipientKind SubjectKind
}

func (source paymentSource) Kind() SourceKind {
	if source.recipientKind == SubjectTeamMember {
		return SourceTeamPayment
	}
	return SourcePayment
}

func (source paymentSource) Entries(ctx context.Context, store Store, window Window) ([]Entry, error) {
	payments, err := store.ListPayments(ctx, source.recipientKind, window)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(payments))
	for _, payment := range payments {
		if !window.Unbounded() && !window.Contains(payment.PaidAt) && !window.Contains(payment.CreatedAt) {
			continue
		}
		entries = append(entries, NormalizePayment(payment))
	}
	return entries, nil
}

type voiceoverSource struct{}

func (voiceoverSource) Kind() SourceKind {
	return SourceVoiceover
}

func (source voiceoverSource) Entries(ctx context.Context, store Store, window Window) ([]Entry, error) {
	scripts, err := store.ListPaidScripts(ctx, window)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(scripts))
	for _, script := range scripts {
		if script.Status != ScriptPaid {
			continue
		}
		if !window.Unbounded() && !window.Contains(script.UpdatedAt) {
			continue
		}
		entries = append(entries, NormalizeScriptPayout(script))
	}
	return entries, nil
}

// NormalizeRecord converts a general record into a ledger entry.
func NormalizeRecord(record GeneralRecord) Entry {
	direction := record.Direction
	if direction == "" {
		direction = record.EntryType.Direction()
	}
	timestamp := record.OccurredAt
	if timestamp.IsZero() {
		timestamp = record.LegacyDate
	}
	if timestamp.IsZero() {
		timestamp = record.CreatedAt
	}
	return Entry{
		ID:          entryIDPrefixRecord + record.ID,
		Direction:   direction,
		Amount:      record.Amount.Abs(),
		Category:    record.Category,
		Description: record.Description,
		Timestamp:   timestamp,
		Subject:     record.Subject,
		SourceKind:  SourceRecord,
		SourceID:    record.ID,
		UpdatedAt:   record.UpdatedAt,
		OccurredAt:  record.OccurredAt,
		CreatedAt:   record.CreatedAt,
	}
}

// NormalizePayment converts a streamer or team payment into an outgoing entry.
func NormalizePayment(payment Payment) Entry {
	prefix, category, sourceKind := entryIDPrefixPayment, CategorySalaryStreamer, SourcePayment
	if payment.Recipient.Kind == SubjectTeamMember {
		prefix, category, sourceKind = entryIDPrefixTeamPayment, CategorySalaryTeam, SourceTeamPayment
	}
	timestamp := payment.PaidAt
	if timestamp.IsZero() {
		timestamp = payment.CreatedAt
	}
	return Entry{
		ID:          prefix + payment.ID,
		Direction:   DirectionOut,
		Amount:      payment.Amount.Abs(),
		Category:    category,
		Description: paymentDescription(payment),
		Timestamp:   timestamp,
		Subject:     payment.Recipient,
		SourceKind:  sourceKind,
		SourceID:    payment.ID,
		UpdatedAt:   payment.UpdatedAt,
		PaidAt:      payment.PaidAt,
		CreatedAt:   payment.CreatedAt,
	}
}

// NormalizeScriptPayout converts a paid script into the voice actor's payout entry.
func NormalizeScriptPayout(script Script) Entry {
	var subject Subject
	if script.Assigned() {
		subject = Subject{Kind: SubjectVoiceActor, ID: script.VoiceActorID}
	}
	return Entry{
		ID:          entryIDPrefixVoiceover + script.ID,
		Direction:   DirectionOut,
		Amount:      script.Price.Abs(),
		Category:    CategoryVoiceover,
		Description: script.Title,
		Timestamp:   script.UpdatedAt,
		Subject:     subject,
		SourceKind:  SourceVoiceover,
		SourceID:    script.ID,
		UpdatedAt:   script.UpdatedAt,
		CreatedAt:   script.CreatedAt,
	}
}

func paymentDescription(payment Payment) string {
	parts := []string{payment.Type, payment.Period}
	if description := strings.TrimSpace(payment.Description); description != "" {
		parts = append(parts, description)
	}
	return strings.Join(parts, descriptionSeparator)
}
