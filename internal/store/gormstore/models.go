package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GeneralRecord mirrors the general_records table.
type GeneralRecord struct {
	ID               string          `gorm:"type:uuid;primaryKey"`
	EntryType        string          `gorm:"not null"`
	Direction        string          `gorm:"not null"`
	Amount           decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Category         string          `gorm:"not null"`
	Description      *string
	OccurredAt       *time.Time `gorm:"index:idx_general_records_occurred_at"`
	LegacyDate       *time.Time `gorm:"column:date"`
	StreamerID       *string    `gorm:"index"`
	TeamMemberID     *string    `gorm:"index"`
	ContentCreatorID *string    `gorm:"index"`
	VoiceActorID     *string    `gorm:"index"`
	RelatedPaymentID *string
	CreatedAt        time.Time `gorm:"not null;index:idx_general_records_created_at"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (GeneralRecord) TableName() string {
	return "general_records"
}

func (record *GeneralRecord) BeforeCreate(tx *gorm.DB) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return nil
}

// StreamerPayment mirrors the payments table.
type StreamerPayment struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	StreamerID  string          `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Type        string          `gorm:"not null"`
	Period      string          `gorm:"not null;index"`
	Description *string
	PaidAt      *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null;index"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

func (StreamerPayment) TableName() string {
	return "payments"
}

func (payment *StreamerPayment) BeforeCreate(tx *gorm.DB) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	return nil
}

// TeamPayment mirrors the team_payments table. The natural key keeps a salary
// record from deriving more than one payout.
type TeamPayment struct {
	ID              string          `gorm:"type:uuid;primaryKey"`
	TeamMemberID    string          `gorm:"not null;index:uniq_team_payments_natural_key,unique,priority:1"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Type            string          `gorm:"not null"`
	Period          string          `gorm:"not null;index:uniq_team_payments_natural_key,unique,priority:2"`
	Description     *string
	PaidAt          *time.Time `gorm:"index"`
	RelatedRecordID *string    `gorm:"index:uniq_team_payments_natural_key,unique,priority:3"`
	CreatedAt       time.Time  `gorm:"not null;index"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

func (TeamPayment) TableName() string {
	return "team_payments"
}

func (payment *TeamPayment) BeforeCreate(tx *gorm.DB) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	return nil
}

// VoiceoverScript mirrors the voiceover_scripts table.
type VoiceoverScript struct {
	ID                 string `gorm:"type:uuid;primaryKey"`
	Title              string `gorm:"not null"`
	Text               string `gorm:"not null"`
	Status             string `gorm:"not null;index"`
	Price              decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	VoiceLink          *string
	CreatorID          *string `gorm:"index"`
	VoiceActorID       *string `gorm:"index"`
	ProducerApproved   bool    `gorm:"not null;default:false"`
	ProducerApprovedAt *time.Time
	ProducerApprovedBy *string
	AdminApproved      bool `gorm:"not null;default:false"`
	AdminApprovedAt    *time.Time
	AdminApprovedBy    *string
	RejectionReason    *string
	Version            int64     `gorm:"not null;default:1"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null;index"`
}

func (VoiceoverScript) TableName() string {
	return "voiceover_scripts"
}

func (script *VoiceoverScript) BeforeCreate(tx *gorm.DB) error {
	if script.ID == "" {
		script.ID = uuid.NewString()
	}
	return nil
}

// EditPack mirrors the edit_packs table.
type EditPack struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	ScriptID    string `gorm:"not null;index:uniq_edit_packs_script,unique"`
	Token       string `gorm:"not null;index:uniq_edit_packs_token,unique"`
	EditorNotes *string
	AssetsLinks datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
	ExpiresAt   time.Time      `gorm:"not null"`
}

func (EditPack) TableName() string {
	return "edit_packs"
}

func (pack *EditPack) BeforeCreate(tx *gorm.DB) error {
	if pack.ID == "" {
		pack.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&GeneralRecord{},
		&StreamerPayment{},
		&TeamPayment{},
		&VoiceoverScript{},
		&EditPack{},
	}
}
