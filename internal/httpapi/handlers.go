package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/gin-gonic/gin"
)

func (handler *httpHandler) handleLedger(ctx *gin.Context) {
	query, err := parseLedgerQuery(ctx)
	if err != nil {
		handler.respondError(ctx, "ledger", err)
		return
	}
	// Team members only ever see their own lines.
	if actor := actorFrom(ctx); actor.Role == RoleTeam {
		query.Subject = ledger.Subject{Kind: ledger.SubjectTeamMember, ID: actor.ID}
	}
	view, err := handler.service.Ledger(ctx.Request.Context(), query)
	if err != nil {
		handler.respondError(ctx, "ledger", err)
		return
	}
	ctx.JSON(http.StatusOK, newLedgerResponse(view))
}

func parseLedgerQuery(ctx *gin.Context) (ledger.LedgerQuery, error) {
	var query ledger.LedgerQuery
	if month := strings.TrimSpace(ctx.Query("month")); month != "" {
		window, err := ledger.MonthWindow(month)
		if err != nil {
			return ledger.LedgerQuery{}, err
		}
		query.Window = window
	} else {
		from, err := parseInstant(ctx.Query("from"), false)
		if err != nil {
			return ledger.LedgerQuery{}, fmt.Errorf("%w: from: %v", ledger.ErrInvalidWindow, err)
		}
		to, err := parseInstant(ctx.Query("to"), true)
		if err != nil {
			return ledger.LedgerQuery{}, fmt.Errorf("%w: to: %v", ledger.ErrInvalidWindow, err)
		}
		window, err := ledger.NewWindow(from, to)
		if err != nil {
			return ledger.LedgerQuery{}, err
		}
		query.Window = window
	}
	kind, id := strings.TrimSpace(ctx.Query("subject_kind")), strings.TrimSpace(ctx.Query("subject_id"))
	if kind != "" || id != "" {
		subject, err := ledger.NewSubject(ledger.SubjectKind(kind), id)
		if err != nil {
			return ledger.LedgerQuery{}, err
		}
		query.Subject = subject
	}
	return query, nil
}

func (handler *httpHandler) handleCreateRecord(ctx *gin.Context) {
	var request createRecordRequest
	if !bindJSON(ctx, &request, false) {
		return
	}
	occurredAt, err := parseInstant(request.OccurredAt, false)
	if err != nil {
		handler.respondError(ctx, "create record", fmt.Errorf("%w: occurred_at: %v", ledger.ErrValidation, err))
		return
	}
	record, err := handler.service.CreateGeneralRecord(ctx.Request.Context(), ledger.GeneralRecordInput{
		Type:        request.Type,
		Category:    request.Category,
		Amount:      string(request.Amount),
		Description: request.Description,
		OccurredAt:  occurredAt,
		Subjects: ledger.SubjectRefs{
			StreamerID:       request.StreamerID,
			TeamMemberID:     request.TeamMemberID,
			ContentCreatorID: request.ContentCreatorID,
			VoiceActorID:     request.VoiceActorID,
		},
		RelatedPaymentID: request.RelatedPaymentID,
	})
	if err != nil {
		handler.respondError(ctx, "create record", err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"record": newRecordPayload(record)})
}

func (handler *httpHandler) handleRederivePayout(ctx *gin.Context) {
	payment, err := handler.service.RederivePayout(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, "rederive payout", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": newPaymentPayload(payment)})
}

func (handler *httpHandler) handleRecordPayment(ctx *gin.Context) {
	var request recordPaymentRequest
	if !bindJSON(ctx, &request, false) {
		return
	}
	paidAt, err := parseInstant(request.PaidAt, false)
	if err != nil {
		handler.respondError(ctx, "record payment", fmt.Errorf("%w: paid_at: %v", ledger.ErrValidation, err))
		return
	}
	recipient, err := ledger.NewSubject(ledger.SubjectKind(strings.TrimSpace(request.RecipientKind)), request.RecipientID)
	if err != nil {
		handler.respondError(ctx, "record payment", err)
		return
	}
	payment, err := handler.service.RecordPayment(ctx.Request.Context(), ledger.PaymentInput{
		Recipient:   recipient,
		Amount:      string(request.Amount),
		Type:        request.Type,
		Period:      request.Period,
		Description: request.Description,
		PaidAt:      paidAt,
	})
	if err != nil {
		handler.respondError(ctx, "record payment", err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"payment": newPaymentPayload(payment)})
}

func (handler *httpHandler) handleMarkPaymentPaid(ctx *gin.Context) {
	payment, err := handler.service.MarkPaymentPaid(ctx.Request.Context(), ledger.SubjectKind(ctx.Param("kind")), ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, "mark payment paid", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": newPaymentPayload(payment)})
}

func (handler *httpHandler) handleCreateScript(ctx *gin.Context) {
	var request createScriptRequest
	if !bindJSON(ctx, &request, false) {
		return
	}
	actor := actorFrom(ctx)
	creatorID := actor.ID
	if actor.Role == RoleAdmin && strings.TrimSpace(request.CreatorID) != "" {
		creatorID = request.CreatorID
	}
	script, err := handler.service.CreateScript(ctx.Request.Context(), ledger.ScriptInput{
		Title:     request.Title,
		Text:      request.Text,
		CreatorID: creatorID,
	})
	if err != nil {
		handler.respondError(ctx, "create script", err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"script": newScriptPayload(script)})
}

func (handler *httpHandler) handleGetScript(ctx *gin.Context) {
	script, err := handler.service.GetScript(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, "get script", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"script": newScriptPayload(script)})
}

type assignRequest struct {
	VoiceActorID string `json:"voice_actor_id"`
}

func (handler *httpHandler) handleAssignScript(ctx *gin.Context) {
	var request assignRequest
	if !bindJSON(ctx, &request, true) {
		return
	}
	actor := actorFrom(ctx)
	voiceActorID := actor.ID
	if actor.Role == RoleAdmin {
		voiceActorID = request.VoiceActorID
	}
	script, err := handler.service.AssignScript(ctx.Request.Context(), ctx.Param("id"), voiceActorID)
	handler.respondScript(ctx, "assign script", script, err)
}

func (handler *httpHandler) handleSaveVoiceLink(ctx *gin.Context) {
	var request voiceLinkRequest
	if !bindJSON(ctx, &request, false) {
		return
	}
	actor, ok := handler.authorizeScript(ctx)
	if !ok {
		return
	}
	script, err := handler.service.SaveVoiceLink(ctx.Request.Context(), ctx.Param("id"), actor.ID, request.VoiceLink)
	handler.respondScript(ctx, "save voice link", script, err)
}

func (handler *httpHandler) handleClearVoiceLink(ctx *gin.Context) {
	actor, ok := handler.authorizeScript(ctx)
	if !ok {
		return
	}
	script, err := handler.service.ClearVoiceLink(ctx.Request.Context(), ctx.Param("id"), actor.ID)
	handler.respondScript(ctx, "clear voice link", script, err)
}

func (handler *httpHandler) handleProducerApprove(ctx *gin.Context) {
	actor, ok := handler.authorizeScript(ctx)
	if !ok {
		return
	}
	script, err := handler.service.ProducerApprove(ctx.Request.Context(), ctx.Param("id"), actor.ID)
	handler.respondScript(ctx, "producer approve", script, err)
}

func (handler *httpHandler) handleAdminApprove(ctx *gin.Context) {
	var request adminApproveRequest
	if !bindJSON(ctx, &request, false) {
		return
	}
	actor := actorFrom(ctx)
	script, pack, err := handler.service.AdminApprove(ctx.Request.Context(), ctx.Param("id"), actor.ID, string(request.Price))
	if err != nil {
		handler.respondError(ctx, "admin approve", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"script":    newScriptPayload(script),
		"edit_pack": newEditPackPayload(pack, handler.service.EditPackExpired(pack)),
	})
}

func (handler *httpHandler) handleRejectScript(ctx *gin.Context) {
	var request rejectRequest
	if !bindJSON(ctx, &request, true) {
		return
	}
	actor, ok := handler.authorizeScript(ctx)
	if !ok {
		return
	}
	script, err := handler.service.RejectScript(ctx.Request.Context(), ctx.Param("id"), actor.ID, request.Reason)
	handler.respondScript(ctx, "reject script", script, err)
}

func (handler *httpHandler) handleResubmitScript(ctx *gin.Context) {
	actor, ok := handler.authorizeScript(ctx)
	if !ok {
		return
	}
	script, err := handler.service.ResubmitScript(ctx.Request.Context(), ctx.Param("id"), actor.ID)
	handler.respondScript(ctx, "resubmit script", script, err)
}

func (handler *httpHandler) handleMarkPaid(ctx *gin.Context) {
	actor := actorFrom(ctx)
	script, err := handler.service.MarkPaid(ctx.Request.Context(), ctx.Param("id"), actor.ID)
	handler.respondScript(ctx, "mark script paid", script, err)
}

func (handler *httpHandler) handleArchiveScript(ctx *gin.Context) {
	actor, ok := handler.authorizeScript(ctx)
	if !ok {
		return
	}
	script, err := handler.service.ArchiveScript(ctx.Request.Context(), ctx.Param("id"), actor.ID)
	handler.respondScript(ctx, "archive script", script, err)
}

func (handler *httpHandler) handleGetEditPack(ctx *gin.Context) {
	if _, ok := handler.authorizeScript(ctx); !ok {
		return
	}
	pack, err := handler.service.GetOrCreateEditPack(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, "get edit pack", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"edit_pack": newEditPackPayload(pack, handler.service.EditPackExpired(pack))})
}

func (handler *httpHandler) handleUpdateEditPack(ctx *gin.Context) {
	var request editPackRequest
	if !bindJSON(ctx, &request, false) {
		return
	}
	if _, ok := handler.authorizeScript(ctx); !ok {
		return
	}
	pack, err := handler.service.UpdateEditPack(ctx.Request.Context(), ctx.Param("id"), request.EditorNotes, request.AssetsLinks)
	if err != nil {
		handler.respondError(ctx, "update edit pack", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"edit_pack": newEditPackPayload(pack, handler.service.EditPackExpired(pack))})
}

func (handler *httpHandler) handleResolveEditPack(ctx *gin.Context) {
	resolved, err := handler.service.ResolveEditPack(ctx.Request.Context(), ctx.Param("token"))
	if err != nil {
		handler.respondError(ctx, "resolve edit pack", err)
		return
	}
	if handler.service.EditPackExpired(resolved.Pack) {
		ctx.JSON(http.StatusGone, errorResponse(codeExpired, "edit pack link has expired"))
		return
	}
	links := resolved.Pack.AssetsLinks
	if links == nil {
		links = []ledger.AssetLink{}
	}
	ctx.JSON(http.StatusOK, gin.H{"edit_pack": publicEditPackPayload{
		ScriptTitle: resolved.ScriptTitle,
		ScriptText:  resolved.ScriptText,
		VoiceLink:   resolved.VoiceLink,
		EditorNotes: resolved.Pack.EditorNotes,
		AssetsLinks: links,
		ExpiresAt:   resolved.Pack.ExpiresAt,
	}})
}

// authorizeScript loads the script and applies the ownership check. The engine
// re-validates every data precondition afterwards.
func (handler *httpHandler) authorizeScript(ctx *gin.Context) (Actor, bool) {
	actor := actorFrom(ctx)
	if actor.Role == RoleAdmin {
		return actor, true
	}
	script, err := handler.service.GetScript(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, "authorize script", err)
		return Actor{}, false
	}
	if !mayActOnScript(actor, script) {
		ctx.JSON(http.StatusForbidden, errorResponse("forbidden", "actor does not own this script"))
		return Actor{}, false
	}
	return actor, true
}

func (handler *httpHandler) respondScript(ctx *gin.Context, operation string, script ledger.Script, err error) {
	if err != nil {
		handler.respondError(ctx, operation, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"script": newScriptPayload(script)})
}

// bindJSON decodes the body into target. An empty body is accepted when optional.
func bindJSON(ctx *gin.Context, target any, optional bool) bool {
	err := ctx.ShouldBindJSON(target)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	ctx.JSON(http.StatusBadRequest, errorResponse(codeInvalidBody, "expected JSON body"))
	return false
}
