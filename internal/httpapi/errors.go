package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	codeValidation   = "validation_error"
	codePrecondition = "precondition_failed"
	codeConflict     = "conflict"
	codeNotFound     = "not_found"
	codeTimeout      = "timeout"
	codeInternal     = "internal_error"
	codeInvalidBody  = "invalid_payload"
	codeExpired      = "edit_pack_expired"
)

// statusForError maps a ledger error category to an HTTP status and code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, ledger.ErrPrecondition):
		return http.StatusUnprocessableEntity, codePrecondition
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict, codeConflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (handler *httpHandler) respondError(ctx *gin.Context, operation string, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		handler.logger.Error(operation+" failed", zap.Error(err))
		ctx.JSON(status, errorResponse(code, operation+" failed"))
		return
	}
	ctx.JSON(status, errorResponse(code, err.Error()))
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
