package ledger

import (
	"errors"
	"fmt"
	"testing"
)

const (
	operationName    = "ledger"
	subjectName      = "entry"
	codeName         = "invalid"
	baseErrorMessage = "base error"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New(baseErrorMessage)
	wrappedError := WrapError(operationName, subjectName, codeName, baseError)
	if wrappedError == nil {
		test.Fatalf("expected wrapped error")
	}
	expected := operationName + "." + subjectName + "." + codeName + ": " + baseErrorMessage
	if wrappedError.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, wrappedError.Error())
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError(operationName, subjectName, codeName, nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}

func TestDomainErrorsWrapOneCategory(test *testing.T) {
	test.Parallel()
	categories := []error{ErrValidation, ErrPrecondition, ErrConflict, ErrNotFound}
	testCases := []struct {
		err      error
		category error
	}{
		{err: ErrInvalidVoiceLink, category: ErrValidation},
		{err: ErrMultipleSubjects, category: ErrValidation},
		{err: ErrPriceNotPositive, category: ErrPrecondition},
		{err: ErrScriptArchived, category: ErrPrecondition},
		{err: ErrScriptAlreadyAssigned, category: ErrConflict},
		{err: ErrScriptModified, category: ErrConflict},
		{err: ErrEditPackNotFound, category: ErrNotFound},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.err.Error(), func(test *testing.T) {
			test.Parallel()
			wrapped := WrapError("store", "script", "update", fmt.Errorf("%w: detail", testCase.err))
			for _, category := range categories {
				matches := errors.Is(wrapped, category)
				if matches != (category == testCase.category) {
					test.Fatalf("category %v: expected match=%v", category, category == testCase.category)
				}
			}
			if !errors.Is(wrapped, testCase.err) {
				test.Fatalf(errorMismatchMessage, testCase.err, wrapped)
			}
		})
	}
}
