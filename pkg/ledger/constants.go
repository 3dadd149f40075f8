package ledger

import "time"

const (
	operationLedger              = "ledger"
	operationCreateRecord        = "create_record"
	operationDerivePayout        = "derive_payout"
	operationRederivePayout      = "rederive_payout"
	operationRecordPayment       = "record_payment"
	operationMarkPaymentPaid     = "mark_payment_paid"
	operationCreateScript        = "create_script"
	operationAssignScript        = "assign_script"
	operationSaveVoiceLink       = "save_voice_link"
	operationClearVoiceLink      = "clear_voice_link"
	operationProducerApprove     = "producer_approve"
	operationAdminApprove        = "admin_approve"
	operationRejectScript        = "reject_script"
	operationResubmitScript      = "resubmit_script"
	operationMarkScriptPaid      = "mark_script_paid"
	operationArchiveScript       = "archive_script"
	operationGetOrCreateEditPack = "get_or_create_edit_pack"
	operationUpdateEditPack      = "update_edit_pack"

	operationStatusOK       = "ok"
	operationStatusError    = "error"
	operationStatusDegraded = "degraded"

	entryIDPrefixRecord      = "record-"
	entryIDPrefixPayment     = "payment-"
	entryIDPrefixTeamPayment = "team-payment-"
	entryIDPrefixVoiceover   = "voiceover-"

	CategorySalaryStreamer = "salary-streamer"
	CategorySalaryTeam     = "salary-team"
	CategoryVoiceover      = "voiceover"

	PaymentTypeSalary = "salary"

	defaultPayoutDescription = "Maaş ödemesi"
	periodLayout             = "2006-01"
	descriptionSeparator     = " - "

	// DefaultEditPackTTL is the lifetime of a freshly issued edit pack.
	DefaultEditPackTTL = 7 * 24 * time.Hour

	editPackTokenMinSuffix = 24
	editPackTokenMaxSuffix = 32

	PayoutResultCreated   = "created"
	PayoutResultDuplicate = "duplicate"
	PayoutResultFailed    = "failed"

	TransitionResultOK       = "ok"
	TransitionResultRejected = "rejected"
	TransitionResultConflict = "conflict"
)

var salaryCategoryMarkers = []string{"salary", "maaş", "maas"}
