package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ScriptAction names a voiceover workflow transition.
type ScriptAction string

const (
	ActionAssign          ScriptAction = "assign"
	ActionSaveVoiceLink   ScriptAction = "save_voice_link"
	ActionClearVoiceLink  ScriptAction = "clear_voice_link"
	ActionProducerApprove ScriptAction = "producer_approve"
	ActionAdminApprove    ScriptAction = "admin_approve"
	ActionReject          ScriptAction = "reject"
	ActionResubmit        ScriptAction = "resubmit"
	ActionPay             ScriptAction = "pay"
	ActionArchive         ScriptAction = "archive"
)

type transitionInput struct {
	action    ScriptAction
	actorID   string
	voiceLink string
	price     decimal.Decimal
	reason    string
	at        time.Time
}

// transition is the only place script state changes are decided. It reports
// changed=false for no-op replays that must not be written.
func transition(script Script, input transitionInput) (Script, bool, error) {
	if script.Status == ScriptArchived {
		if input.action == ActionArchive {
			return script, false, nil
		}
		return Script{}, false, ErrScriptArchived
	}
	next := script
	next.UpdatedAt = input.at

	switch input.action {
	case ActionAssign:
		if script.VoiceActorID == input.actorID {
			return script, false, nil
		}
		if script.Assigned() {
			return Script{}, false, ErrScriptAlreadyAssigned
		}
		next.VoiceActorID = input.actorID

	case ActionSaveVoiceLink, ActionClearVoiceLink:
		if script.ProducerApproved() {
			return Script{}, false, ErrVoiceLinkLocked
		}
		if !voiceLinkEditable(script.Status) {
			return Script{}, false, fmt.Errorf("%w: %s", ErrInvalidTransition, script.Status)
		}
		next.VoiceLink = input.voiceLink

	case ActionProducerApprove:
		if script.ProducerApproved() {
			return Script{}, false, ErrAlreadyProducerApproved
		}
		if script.Status != ScriptWaitingVoice && script.Status != ScriptVoiceUploaded {
			return Script{}, false, fmt.Errorf("%w: %s", ErrInvalidTransition, script.Status)
		}
		if strings.TrimSpace(script.VoiceLink) == "" {
			return Script{}, false, ErrVoiceLinkRequired
		}
		next.Stage = StageProducerApproved
		next.ProducerApprovedAt = input.at
		next.ProducerApprovedBy = input.actorID
		next.Status = ScriptVoiceUploaded

	case ActionAdminApprove:
		if script.AdminApproved() {
			return Script{}, false, ErrAlreadyAdminApproved
		}
		if !script.ProducerApproved() {
			return Script{}, false, ErrProducerApprovalRequired
		}
		if !input.price.IsPositive() {
			return Script{}, false, ErrPriceNotPositive
		}
		next.Stage = StageAdminApproved
		next.AdminApprovedAt = input.at
		next.AdminApprovedBy = input.actorID
		next.Price = input.price
		next.Status = ScriptApproved

	case ActionReject:
		switch script.Status {
		case ScriptWaitingVoice, ScriptVoiceUploaded, ScriptApproved:
		default:
			return Script{}, false, fmt.Errorf("%w: %s", ErrInvalidTransition, script.Status)
		}
		next.Status = ScriptRejected
		next.Stage = StageNone
		next.ProducerApprovedAt, next.ProducerApprovedBy = time.Time{}, ""
		next.AdminApprovedAt, next.AdminApprovedBy = time.Time{}, ""
		next.RejectionReason = input.reason

	case ActionResubmit:
		if script.Status != ScriptRejected {
			return Script{}, false, fmt.Errorf("%w: %s", ErrInvalidTransition, script.Status)
		}
		next.Status = ScriptWaitingVoice
		next.RejectionReason = ""

	case ActionPay:
		if script.Status != ScriptApproved {
			return Script{}, false, ErrScriptNotApproved
		}
		if !script.Price.IsPositive() {
			return Script{}, false, ErrPriceNotPositive
		}
		next.Status = ScriptPaid

	case ActionArchive:
		if script.Status == ScriptPaid {
			return Script{}, false, fmt.Errorf("%w: %s", ErrInvalidTransition, script.Status)
		}
		next.Status = ScriptArchived

	default:
		return Script{}, false, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, input.action)
	}
	return next, true, nil
}

func voiceLinkEditable(status ScriptStatus) bool {
	switch status {
	case ScriptWaitingVoice, ScriptVoiceUploaded, ScriptRejected:
		return true
	default:
		return false
	}
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return TransitionResultOK
	case errors.Is(err, ErrConflict):
		return TransitionResultConflict
	default:
		return TransitionResultRejected
	}
}

// CreateScript stores a new script waiting for a voice actor.
func (service *Service) CreateScript(ctx context.Context, input ScriptInput) (Script, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Script{}, ErrMissingTitle
	}
	creatorID, err := requireID(input.CreatorID, ErrInvalidActorID)
	if err != nil {
		return Script{}, err
	}
	now := service.now()
	script, err := service.store.InsertScript(ctx, Script{
		Title:     title,
		Text:      input.Text,
		Status:    ScriptWaitingVoice,
		Price:     decimal.Zero,
		CreatorID: creatorID,
		Stage:     StageNone,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateScript,
		ScriptID:  script.ID,
		ActorID:   creatorID,
		Error:     err,
	})
	return script, err
}

// GetScript loads one script.
func (service *Service) GetScript(ctx context.Context, rawScriptID string) (Script, error) {
	scriptID, err := requireID(rawScriptID, ErrInvalidScriptID)
	if err != nil {
		return Script{}, err
	}
	return service.store.GetScript(ctx, scriptID)
}

// AssignScript gives an unassigned script to a voice actor. Re-claiming a script
// the actor already holds succeeds without a write; every other claim on an
// assigned script is a conflict.
func (service *Service) AssignScript(ctx context.Context, rawScriptID string, rawActorID string) (Script, error) {
	scriptID, actorID, err := scriptAndActor(rawScriptID, rawActorID)
	if err != nil {
		return Script{}, err
	}
	script, err := service.assign(ctx, scriptID, actorID)
	service.recordTransition(string(ActionAssign), err)
	service.logOperation(ctx, OperationLog{
		Operation: operationAssignScript,
		ScriptID:  scriptID,
		ActorID:   actorID,
		Error:     err,
	})
	return script, err
}

func (service *Service) assign(ctx context.Context, scriptID string, actorID string) (Script, error) {
	current, err := service.store.GetScript(ctx, scriptID)
	if err != nil {
		return Script{}, err
	}
	at := service.now()
	if _, changed, err := transition(current, transitionInput{action: ActionAssign, actorID: actorID, at: at}); err != nil || !changed {
		if err != nil {
			return Script{}, err
		}
		return current, nil
	}
	assignErr := service.store.AssignVoiceActor(ctx, scriptID, actorID, at)
	if errors.Is(assignErr, ErrScriptAlreadyAssigned) {
		latest, err := service.store.GetScript(ctx, scriptID)
		if err == nil && latest.VoiceActorID == actorID {
			return latest, nil
		}
		return Script{}, assignErr
	}
	if assignErr != nil {
		return Script{}, assignErr
	}
	return service.store.GetScript(ctx, scriptID)
}

// SaveVoiceLink stores the recording url before producer approval.
func (service *Service) SaveVoiceLink(ctx context.Context, rawScriptID string, rawActorID string, rawVoiceLink string) (Script, error) {
	voiceLink, ok := validateHTTPURL(rawVoiceLink)
	if !ok {
		return Script{}, fmt.Errorf("%w: %q", ErrInvalidVoiceLink, rawVoiceLink)
	}
	return service.mutateScript(ctx, operationSaveVoiceLink, rawScriptID, rawActorID, transitionInput{
		action:    ActionSaveVoiceLink,
		voiceLink: voiceLink,
	}, nil)
}

// ClearVoiceLink removes the recording url before producer approval.
func (service *Service) ClearVoiceLink(ctx context.Context, rawScriptID string, rawActorID string) (Script, error) {
	return service.mutateScript(ctx, operationClearVoiceLink, rawScriptID, rawActorID, transitionInput{
		action: ActionClearVoiceLink,
	}, nil)
}

// ProducerApprove records the content creator's approval of the recording.
func (service *Service) ProducerApprove(ctx context.Context, rawScriptID string, rawApproverID string) (Script, error) {
	return service.mutateScript(ctx, operationProducerApprove, rawScriptID, rawApproverID, transitionInput{
		action: ActionProducerApprove,
	}, nil)
}

// AdminApprove prices the script, approves it and issues its edit pack in the
// same transaction.
func (service *Service) AdminApprove(ctx context.Context, rawScriptID string, rawApproverID string, priceText string) (Script, EditPack, error) {
	price, err := ParseAmount(priceText)
	if err != nil {
		return Script{}, EditPack{}, fmt.Errorf("%w: %q", ErrInvalidPrice, priceText)
	}
	var pack EditPack
	script, err := service.mutateScript(ctx, operationAdminApprove, rawScriptID, rawApproverID, transitionInput{
		action: ActionAdminApprove,
		price:  price,
	}, func(ctx context.Context, txStore Store, approved Script) error {
		issued, err := service.getOrCreateEditPack(ctx, txStore, approved)
		if err != nil {
			return err
		}
		pack = issued
		return nil
	})
	if err != nil {
		return Script{}, EditPack{}, err
	}
	return script, pack, nil
}

// RejectScript sends the script back, clearing both approvals. Voice link and
// assignment are kept.
func (service *Service) RejectScript(ctx context.Context, rawScriptID string, rawActorID string, reason string) (Script, error) {
	return service.mutateScript(ctx, operationRejectScript, rawScriptID, rawActorID, transitionInput{
		action: ActionReject,
		reason: strings.TrimSpace(reason),
	}, nil)
}

// ResubmitScript reopens a rejected script for a new recording.
func (service *Service) ResubmitScript(ctx context.Context, rawScriptID string, rawActorID string) (Script, error) {
	return service.mutateScript(ctx, operationResubmitScript, rawScriptID, rawActorID, transitionInput{
		action: ActionResubmit,
	}, nil)
}

// MarkPaid settles an approved script. The paid script then appears in the ledger.
func (service *Service) MarkPaid(ctx context.Context, rawScriptID string, rawActorID string) (Script, error) {
	return service.mutateScript(ctx, operationMarkScriptPaid, rawScriptID, rawActorID, transitionInput{
		action: ActionPay,
	}, nil)
}

// ArchiveScript retires a script. Archiving twice is a no-op.
func (service *Service) ArchiveScript(ctx context.Context, rawScriptID string, rawActorID string) (Script, error) {
	return service.mutateScript(ctx, operationArchiveScript, rawScriptID, rawActorID, transitionInput{
		action: ActionArchive,
	}, nil)
}

func (service *Service) mutateScript(
	ctx context.Context,
	operation string,
	rawScriptID string,
	rawActorID string,
	input transitionInput,
	afterWrite func(ctx context.Context, txStore Store, script Script) error,
) (Script, error) {
	scriptID, actorID, err := scriptAndActor(rawScriptID, rawActorID)
	if err != nil {
		return Script{}, err
	}
	input.actorID = actorID
	input.at = service.now()

	var result Script
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		current, err := transactionStore.GetScript(ctx, scriptID)
		if err != nil {
			return err
		}
		next, changed, err := transition(current, input)
		if err != nil {
			return err
		}
		if !changed {
			result = current
			return nil
		}
		updated, err := transactionStore.UpdateScript(ctx, next, current.Version)
		if err != nil {
			return err
		}
		if afterWrite != nil {
			if err := afterWrite(ctx, transactionStore, updated); err != nil {
				return err
			}
		}
		result = updated
		return nil
	})
	service.recordTransition(string(input.action), operationError)
	service.logOperation(ctx, OperationLog{
		Operation: operation,
		ScriptID:  scriptID,
		ActorID:   actorID,
		Amount:    input.price,
		Error:     operationError,
	})
	if operationError != nil {
		return Script{}, operationError
	}
	return result, nil
}

func scriptAndActor(rawScriptID string, rawActorID string) (string, string, error) {
	scriptID, err := requireID(rawScriptID, ErrInvalidScriptID)
	if err != nil {
		return "", "", err
	}
	actorID, err := requireID(rawActorID, ErrInvalidActorID)
	if err != nil {
		return "", "", err
	}
	return scriptID, actorID, nil
}
