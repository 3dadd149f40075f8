package ledger

import (
	"errors"
	"fmt"
)

// Error categories. Every domain error wraps exactly one of them.
var (
	ErrValidation   = errors.New("validation failed")
	ErrPrecondition = errors.New("precondition failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
)

// Validation errors.
var (
	ErrInvalidEntryType   = categorized(ErrValidation, "invalid entry type")
	ErrInvalidAmount      = categorized(ErrValidation, "invalid amount")
	ErrMissingCategory    = categorized(ErrValidation, "category is required")
	ErrMissingOccurredAt  = categorized(ErrValidation, "date is required")
	ErrMultipleSubjects   = categorized(ErrValidation, "at most one subject reference is allowed")
	ErrInvalidSubject     = categorized(ErrValidation, "invalid subject")
	ErrInvalidPeriod      = categorized(ErrValidation, "invalid period")
	ErrInvalidWindow      = categorized(ErrValidation, "invalid time window")
	ErrInvalidScriptID    = categorized(ErrValidation, "invalid script id")
	ErrInvalidRecordID    = categorized(ErrValidation, "invalid record id")
	ErrInvalidActorID     = categorized(ErrValidation, "invalid actor id")
	ErrInvalidVoiceLink   = categorized(ErrValidation, "voice link must be an http or https url")
	ErrInvalidPrice       = categorized(ErrValidation, "invalid price")
	ErrInvalidAssetLink   = categorized(ErrValidation, "invalid asset link")
	ErrInvalidToken       = categorized(ErrValidation, "invalid edit pack token")
	ErrMissingTitle       = categorized(ErrValidation, "title is required")
	ErrInvalidPaymentKind = categorized(ErrValidation, "invalid payment recipient")
	ErrInvalidPaymentID   = categorized(ErrValidation, "invalid payment id")
)

// Precondition errors.
var (
	ErrScriptArchived           = categorized(ErrPrecondition, "script is archived")
	ErrVoiceLinkRequired        = categorized(ErrPrecondition, "voice link is required")
	ErrVoiceLinkLocked          = categorized(ErrPrecondition, "voice link is locked after producer approval")
	ErrProducerApprovalRequired = categorized(ErrPrecondition, "producer approval is required")
	ErrAdminApprovalRequired    = categorized(ErrPrecondition, "admin approval is required")
	ErrPriceNotPositive         = categorized(ErrPrecondition, "price must be greater than zero")
	ErrScriptNotApproved        = categorized(ErrPrecondition, "script is not approved")
	ErrInvalidTransition        = categorized(ErrPrecondition, "transition not allowed from current status")
	ErrNotSalaryPayout          = categorized(ErrPrecondition, "record does not derive a payout")
)

// Conflict errors.
var (
	ErrScriptAlreadyAssigned   = categorized(ErrConflict, "script already assigned to another voice actor")
	ErrAlreadyProducerApproved = categorized(ErrConflict, "script already producer approved")
	ErrAlreadyAdminApproved    = categorized(ErrConflict, "script already admin approved")
	ErrScriptModified          = categorized(ErrConflict, "script was modified concurrently")
	ErrPaymentAlreadyPaid      = categorized(ErrConflict, "payment already paid")
	ErrEditPackExists          = categorized(ErrConflict, "edit pack already exists")
	ErrDuplicatePayout         = categorized(ErrConflict, "payout already derived")
)

// Not-found errors.
var (
	ErrScriptNotFound   = categorized(ErrNotFound, "script not found")
	ErrRecordNotFound   = categorized(ErrNotFound, "record not found")
	ErrPaymentNotFound  = categorized(ErrNotFound, "payment not found")
	ErrEditPackNotFound = categorized(ErrNotFound, "edit pack not found")
)

// Configuration and integrity errors.
var (
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrInvalidApprovalState = errors.New("invalid approval state")
)

type categoryError struct {
	category error
	message  string
}

func categorized(category error, message string) error {
	return &categoryError{category: category, message: message}
}

func (categoryError *categoryError) Error() string {
	return categoryError.message
}

func (categoryError *categoryError) Unwrap() error {
	return categoryError.category
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
