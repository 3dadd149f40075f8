package ledger

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the flow of money relative to the agency.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// EntryType classifies a general record.
type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
	EntryPayout  EntryType = "payout"
)

// ParseEntryType normalizes caller-supplied entry type text.
func ParseEntryType(raw string) (EntryType, error) {
	switch EntryType(strings.ToLower(strings.TrimSpace(raw))) {
	case EntryIncome:
		return EntryIncome, nil
	case EntryExpense:
		return EntryExpense, nil
	case EntryPayout:
		return EntryPayout, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryType, raw)
	}
}

// Direction reports the money flow implied by the entry type.
func (entryType EntryType) Direction() Direction {
	if entryType == EntryIncome {
		return DirectionIn
	}
	return DirectionOut
}

// SubjectKind names the party an entry is attributed to.
type SubjectKind string

const (
	SubjectStreamer       SubjectKind = "streamer"
	SubjectTeamMember     SubjectKind = "team_member"
	SubjectContentCreator SubjectKind = "content_creator"
	SubjectVoiceActor     SubjectKind = "voice_actor"
)

// Subject references at most one party. The zero value means no subject.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// NewSubject validates a subject reference.
func NewSubject(kind SubjectKind, rawID string) (Subject, error) {
	trimmed := strings.TrimSpace(rawID)
	if trimmed == "" {
		return Subject{}, fmt.Errorf("%w: empty id", ErrInvalidSubject)
	}
	switch kind {
	case SubjectStreamer, SubjectTeamMember, SubjectContentCreator, SubjectVoiceActor:
		return Subject{Kind: kind, ID: trimmed}, nil
	default:
		return Subject{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSubject, kind)
	}
}

// SubjectRefs carries the four optional subject columns of a record.
type SubjectRefs struct {
	StreamerID       string
	TeamMemberID     string
	ContentCreatorID string
	VoiceActorID     string
}

// Subject collapses the references into one subject, rejecting more than one.
func (refs SubjectRefs) Subject() (Subject, error) {
	candidates := []struct {
		kind SubjectKind
		id   string
	}{
		{SubjectStreamer, refs.StreamerID},
		{SubjectTeamMember, refs.TeamMemberID},
		{SubjectContentCreator, refs.ContentCreatorID},
		{SubjectVoiceActor, refs.VoiceActorID},
	}
	var subject Subject
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.id) == "" {
			continue
		}
		if !subject.IsZero() {
			return Subject{}, ErrMultipleSubjects
		}
		parsed, err := NewSubject(candidate.kind, candidate.id)
		if err != nil {
			return Subject{}, err
		}
		subject = parsed
	}
	return subject, nil
}

// Refs spreads the subject back into per-kind columns.
func (subject Subject) Refs() SubjectRefs {
	var refs SubjectRefs
	switch subject.Kind {
	case SubjectStreamer:
		refs.StreamerID = subject.ID
	case SubjectTeamMember:
		refs.TeamMemberID = subject.ID
	case SubjectContentCreator:
		refs.ContentCreatorID = subject.ID
	case SubjectVoiceActor:
		refs.VoiceActorID = subject.ID
	}
	return refs
}

// IsZero reports whether no subject is referenced.
func (subject Subject) IsZero() bool {
	return subject.Kind == "" && subject.ID == ""
}

// SourceKind identifies which store a ledger entry came from.
type SourceKind string

const (
	SourceRecord      SourceKind = "record"
	SourcePayment     SourceKind = "payment"
	SourceTeamPayment SourceKind = "team-payment"
	SourceVoiceover   SourceKind = "voiceover-payout"
)

// Window bounds a ledger read. Zero bounds are open.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow validates inclusive bounds.
func NewWindow(from time.Time, to time.Time) (Window, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return Window{}, fmt.Errorf("%w: to precedes from", ErrInvalidWindow)
	}
	return Window{From: from, To: to}, nil
}

// MonthWindow covers every instant of a YYYY-MM period in UTC.
func MonthWindow(period string) (Window, error) {
	start, err := time.ParseInLocation(periodLayout, strings.TrimSpace(period), time.UTC)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return Window{From: start, To: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}, nil
}

// Contains reports whether instant falls inside the inclusive bounds.
func (window Window) Contains(instant time.Time) bool {
	if instant.IsZero() {
		return false
	}
	if !window.From.IsZero() && instant.Before(window.From) {
		return false
	}
	if !window.To.IsZero() && instant.After(window.To) {
		return false
	}
	return true
}

// Unbounded reports whether neither bound is set.
func (window Window) Unbounded() bool {
	return window.From.IsZero() && window.To.IsZero()
}

// GeneralRecord is a manually entered money movement.
type GeneralRecord struct {
	ID               string
	EntryType        EntryType
	Direction        Direction
	Amount           decimal.Decimal
	Category         string
	Description      string
	OccurredAt       time.Time
	LegacyDate       time.Time
	Subject          Subject
	RelatedPaymentID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GeneralRecordInput is the caller-supplied shape of a new record.
type GeneralRecordInput struct {
	Type             string
	Category         string
	Amount           string
	Description      string
	OccurredAt       time.Time
	Subjects         SubjectRefs
	RelatedPaymentID string
}

// Payment is a salary or fee owed to a streamer or team member.
type Payment struct {
	ID              string
	Recipient       Subject
	Amount          decimal.Decimal
	Type            string
	Period          string
	Description     string
	PaidAt          time.Time
	RelatedRecordID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Paid reports whether the payment has been settled.
func (payment Payment) Paid() bool {
	return !payment.PaidAt.IsZero()
}

// PaymentInput is the caller-supplied shape of a new payment.
type PaymentInput struct {
	Recipient   Subject
	Amount      string
	Type        string
	Period      string
	Description string
	PaidAt      time.Time
}

// ScriptStatus is the workflow state of a voiceover script.
type ScriptStatus string

const (
	ScriptWaitingVoice  ScriptStatus = "WAITING_VOICE"
	ScriptVoiceUploaded ScriptStatus = "VOICE_UPLOADED"
	ScriptApproved      ScriptStatus = "APPROVED"
	ScriptRejected      ScriptStatus = "REJECTED"
	ScriptPaid          ScriptStatus = "PAID"
	ScriptArchived      ScriptStatus = "ARCHIVED"
)

// ParseScriptStatus validates a persisted status.
func ParseScriptStatus(raw string) (ScriptStatus, error) {
	switch status := ScriptStatus(raw); status {
	case ScriptWaitingVoice, ScriptVoiceUploaded, ScriptApproved, ScriptRejected, ScriptPaid, ScriptArchived:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidApprovalState, raw)
	}
}

// ApprovalStage is how far a script has progressed through the two-stage gate.
type ApprovalStage int

const (
	StageNone ApprovalStage = iota
	StageProducerApproved
	StageAdminApproved
)

// ApprovalStageFromFlags rebuilds the stage from persisted flags.
func ApprovalStageFromFlags(producerApproved bool, adminApproved bool) (ApprovalStage, error) {
	switch {
	case adminApproved && !producerApproved:
		return StageNone, fmt.Errorf("%w: admin approval without producer approval", ErrInvalidApprovalState)
	case adminApproved:
		return StageAdminApproved, nil
	case producerApproved:
		return StageProducerApproved, nil
	default:
		return StageNone, nil
	}
}

// Script is a voiceover work item.
type Script struct {
	ID                 string
	Title              string
	Text               string
	Status             ScriptStatus
	Price              decimal.Decimal
	VoiceLink          string
	CreatorID          string
	VoiceActorID       string
	Stage              ApprovalStage
	ProducerApprovedAt time.Time
	ProducerApprovedBy string
	AdminApprovedAt    time.Time
	AdminApprovedBy    string
	RejectionReason    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
}

// ProducerApproved reports the first approval flag.
func (script Script) ProducerApproved() bool {
	return script.Stage >= StageProducerApproved
}

// AdminApproved reports the second approval flag.
func (script Script) AdminApproved() bool {
	return script.Stage == StageAdminApproved
}

// Assigned reports whether a voice actor holds the script.
func (script Script) Assigned() bool {
	return script.VoiceActorID != ""
}

// ScriptInput is the caller-supplied shape of a new script.
type ScriptInput struct {
	Title     string
	Text      string
	CreatorID string
}

// AssetLink is one labelled link delivered with an edit pack.
type AssetLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// EditPack is the share-link bundle handed to an external editor.
type EditPack struct {
	ID          string
	ScriptID    string
	Token       string
	EditorNotes string
	AssetsLinks []AssetLink
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the share link is past its lifetime.
func (pack EditPack) Expired(now time.Time) bool {
	return !pack.ExpiresAt.IsZero() && now.After(pack.ExpiresAt)
}

// ResolvedEditPack is what the public share link exposes.
type ResolvedEditPack struct {
	Pack        EditPack
	ScriptTitle string
	ScriptText  string
	VoiceLink   string
}

// Entry is one normalized line of the unified ledger.
type Entry struct {
	ID          string
	Direction   Direction
	Amount      decimal.Decimal
	Category    string
	Description string
	Timestamp   time.Time
	Subject     Subject
	SourceKind  SourceKind
	SourceID    string
	UpdatedAt   time.Time
	OccurredAt  time.Time
	PaidAt      time.Time
	CreatedAt   time.Time
}

// SortTime resolves the first set timestamp of updatedAt, occurredAt, paidAt, createdAt.
func (entry Entry) SortTime() time.Time {
	for _, candidate := range []time.Time{entry.UpdatedAt, entry.OccurredAt, entry.PaidAt, entry.CreatedAt} {
		if !candidate.IsZero() {
			return candidate
		}
	}
	return time.Time{}
}

// LedgerQuery filters a unified ledger read.
type LedgerQuery struct {
	Window  Window
	Subject Subject
}

// LedgerSummary totals a ledger view.
type LedgerSummary struct {
	TotalIn  decimal.Decimal
	TotalOut decimal.Decimal
	Net      decimal.Decimal
}

// ParseAmount accepts either "." or "," as the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	lastComma := strings.LastIndex(trimmed, ",")
	lastDot := strings.LastIndex(trimmed, ".")
	switch {
	case lastComma > lastDot:
		trimmed = strings.ReplaceAll(trimmed, ".", "")
		trimmed = strings.Replace(trimmed, ",", ".", 1)
	case lastComma >= 0:
		trimmed = strings.ReplaceAll(trimmed, ",", "")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return amount, nil
}

func validateHTTPURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return "", false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return trimmed, true
}

func requireID(raw string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty value", sentinel)
	}
	return trimmed, nil
}
