package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

const teamMemberIDValue = "T1"

func salaryInput(test *testing.T) GeneralRecordInput {
	test.Helper()
	return GeneralRecordInput{
		Type:       "expense",
		Category:   "Maaş",
		Amount:     "5000",
		OccurredAt: mustTime(test, "2024-03-10T00:00:00Z"),
		Subjects:   SubjectRefs{TeamMemberID: teamMemberIDValue},
	}
}

func TestCreateSalaryRecordDerivesTeamPayment(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	logger := &recorderLogger{}
	metrics := &recorderMetrics{}
	service := mustNewService(test, store, WithOperationLogger(logger), WithMetrics(metrics))

	record, err := service.CreateGeneralRecord(context.Background(), salaryInput(test))
	if err != nil {
		test.Fatalf("create record: %v", err)
	}
	if !record.Amount.Equal(mustDecimal(test, "5000")) || record.EntryType != EntryPayout || record.Direction != DirectionOut {
		test.Fatalf("unexpected record: %+v", record)
	}
	payments := store.teamPayments()
	if len(payments) != 1 {
		test.Fatalf("expected one team payment, got %d", len(payments))
	}
	payment := payments[0]
	if payment.Recipient != (Subject{Kind: SubjectTeamMember, ID: teamMemberIDValue}) || !payment.Amount.Equal(record.Amount) {
		test.Fatalf("unexpected team payment: %+v", payment)
	}
	if payment.Period != "2024-03" || !payment.PaidAt.Equal(mustTime(test, "2024-03-10T00:00:00Z")) {
		test.Fatalf("unexpected period or paid date: %+v", payment)
	}
	if payment.RelatedRecordID != record.ID || payment.Description != defaultPayoutDescription || payment.Type != PaymentTypeSalary {
		test.Fatalf("unexpected payment linkage: %+v", payment)
	}
	if len(metrics.payouts) != 1 || metrics.payouts[0] != PayoutResultCreated {
		test.Fatalf("unexpected payout metrics: %v", metrics.payouts)
	}
	derived := logger.byOperation(operationDerivePayout)
	if len(derived) != 1 || derived[0].Status != operationStatusOK || derived[0].PaymentID != payment.ID {
		test.Fatalf("unexpected derive log: %+v", derived)
	}
	created := logger.byOperation(operationCreateRecord)
	if len(created) != 1 || created[0].RecordID != record.ID || created[0].Status != operationStatusOK {
		test.Fatalf("unexpected create log: %+v", created)
	}
}

func TestCreateGeneralRecordNormalizesInput(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name       string
		input      GeneralRecordInput
		wantType   EntryType
		wantDir    Direction
		wantAmount string
		wantPayout bool
	}{
		{
			name:       "negative income",
			input:      GeneralRecordInput{Type: "Income", Category: "ads", Amount: "-1200", Subjects: SubjectRefs{StreamerID: "S1"}},
			wantType:   EntryIncome,
			wantDir:    DirectionIn,
			wantAmount: "1200",
		},
		{
			name:       "comma decimal expense",
			input:      GeneralRecordInput{Type: "expense", Category: "equipment", Amount: "1.250,75"},
			wantType:   EntryExpense,
			wantDir:    DirectionOut,
			wantAmount: "1250.75",
		},
		{
			name:       "non salary team expense",
			input:      GeneralRecordInput{Type: "expense", Category: "travel", Amount: "300", Subjects: SubjectRefs{TeamMemberID: teamMemberIDValue}},
			wantType:   EntryExpense,
			wantDir:    DirectionOut,
			wantAmount: "300",
		},
		{
			name:       "salary category for streamer",
			input:      GeneralRecordInput{Type: "expense", Category: "salary", Amount: "300", Subjects: SubjectRefs{StreamerID: "S1"}},
			wantType:   EntryExpense,
			wantDir:    DirectionOut,
			wantAmount: "300",
		},
		{
			name:       "negative salary expense",
			input:      GeneralRecordInput{Type: "expense", Category: "Personel maaşı", Amount: "-5000", Subjects: SubjectRefs{TeamMemberID: teamMemberIDValue}},
			wantType:   EntryPayout,
			wantDir:    DirectionOut,
			wantAmount: "5000",
			wantPayout: true,
		},
		{
			name:       "explicit payout from approved payment",
			input:      GeneralRecordInput{Type: "payout", Category: "salary", Amount: "5000", Subjects: SubjectRefs{TeamMemberID: teamMemberIDValue}, RelatedPaymentID: "tp-9"},
			wantType:   EntryPayout,
			wantDir:    DirectionOut,
			wantAmount: "5000",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test)
			service := mustNewService(test, store)
			input := testCase.input
			input.OccurredAt = mustTime(test, "2024-03-10T00:00:00Z")
			record, err := service.CreateGeneralRecord(context.Background(), input)
			if err != nil {
				test.Fatalf("create record: %v", err)
			}
			if record.EntryType != testCase.wantType || record.Direction != testCase.wantDir {
				test.Fatalf("unexpected type/direction: %s/%s", record.EntryType, record.Direction)
			}
			if !record.Amount.Equal(mustDecimal(test, testCase.wantAmount)) {
				test.Fatalf("expected amount %s, got %s", testCase.wantAmount, record.Amount)
			}
			if record.Amount.IsNegative() {
				test.Fatalf("stored negative amount %s", record.Amount)
			}
			if got := len(store.teamPayments()) == 1; got != testCase.wantPayout {
				test.Fatalf("expected payout=%v, got %v", testCase.wantPayout, got)
			}
		})
	}
}

func TestCreateGeneralRecordValidation(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		mutate  func(input *GeneralRecordInput)
		wantErr error
	}{
		{name: "missing type", mutate: func(input *GeneralRecordInput) { input.Type = "" }, wantErr: ErrInvalidEntryType},
		{name: "unknown type", mutate: func(input *GeneralRecordInput) { input.Type = "refund" }, wantErr: ErrInvalidEntryType},
		{name: "missing category", mutate: func(input *GeneralRecordInput) { input.Category = "  " }, wantErr: ErrMissingCategory},
		{name: "missing amount", mutate: func(input *GeneralRecordInput) { input.Amount = "" }, wantErr: ErrInvalidAmount},
		{name: "zero amount", mutate: func(input *GeneralRecordInput) { input.Amount = "0" }, wantErr: ErrInvalidAmount},
		{name: "garbage amount", mutate: func(input *GeneralRecordInput) { input.Amount = "five" }, wantErr: ErrInvalidAmount},
		{name: "missing date", mutate: func(input *GeneralRecordInput) { input.OccurredAt = time.Time{} }, wantErr: ErrMissingOccurredAt},
		{name: "two subjects", mutate: func(input *GeneralRecordInput) { input.Subjects.StreamerID = "S1" }, wantErr: ErrMultipleSubjects},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test)
			service := mustNewService(test, store)
			input := salaryInput(test)
			testCase.mutate(&input)
			_, err := service.CreateGeneralRecord(context.Background(), input)
			if !errors.Is(err, testCase.wantErr) || !errors.Is(err, ErrValidation) {
				test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
			}
			if len(store.records) != 0 || store.insertPaymentCalls != 0 {
				test.Fatalf("validation failure must not write")
			}
		})
	}
}

func TestCreateGeneralRecordFailsWhenPayoutWriteFails(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.insertPaymentError = errStoreFailure
	logger := &recorderLogger{}
	metrics := &recorderMetrics{}
	service := mustNewService(test, store, WithOperationLogger(logger), WithMetrics(metrics))

	_, err := service.CreateGeneralRecord(context.Background(), salaryInput(test))
	if !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
	if len(metrics.payouts) != 1 || metrics.payouts[0] != PayoutResultFailed {
		test.Fatalf("unexpected payout metrics: %v", metrics.payouts)
	}
	derived := logger.byOperation(operationDerivePayout)
	if len(derived) != 1 || derived[0].Status != operationStatusError {
		test.Fatalf("unexpected derive log: %+v", derived)
	}
}

func TestCreateGeneralRecordReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.insertRecordError = errStoreFailure
	service := mustNewService(test, store)
	if _, err := service.CreateGeneralRecord(context.Background(), salaryInput(test)); !errors.Is(err, errStoreFailure) {
		test.Fatalf(errorMismatchMessage, errStoreFailure, err)
	}
	if store.insertPaymentCalls != 0 {
		test.Fatalf("payout attempted after failed record insert")
	}
}

func TestRederivePayoutIsIdempotent(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.records["r-legacy"] = GeneralRecord{
		ID:         "r-legacy",
		EntryType:  EntryPayout,
		Direction:  DirectionOut,
		Amount:     mustDecimal(test, "4200"),
		Category:   "salary",
		OccurredAt: mustTime(test, "2024-01-31T00:00:00Z"),
		Subject:    Subject{Kind: SubjectTeamMember, ID: teamMemberIDValue},
	}
	metrics := &recorderMetrics{}
	service := mustNewService(test, store, WithMetrics(metrics))

	first, err := service.RederivePayout(context.Background(), "r-legacy")
	if err != nil {
		test.Fatalf("rederive: %v", err)
	}
	if first.Period != "2024-01" || !first.Amount.Equal(mustDecimal(test, "4200")) || first.RelatedRecordID != "r-legacy" {
		test.Fatalf("unexpected derived payment: %+v", first)
	}
	second, err := service.RederivePayout(context.Background(), "r-legacy")
	if err != nil {
		test.Fatalf("second rederive: %v", err)
	}
	if second.ID != first.ID || len(store.teamPayments()) != 1 {
		test.Fatalf("rederive duplicated the payment")
	}
	if len(metrics.payouts) != 2 || metrics.payouts[1] != PayoutResultDuplicate {
		test.Fatalf("unexpected payout metrics: %v", metrics.payouts)
	}
}

func TestRederivePayoutErrors(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.records["r-rent"] = GeneralRecord{ID: "r-rent", EntryType: EntryExpense, Category: "rent", Amount: mustDecimal(test, "10")}
	service := mustNewService(test, store)
	testCases := []struct {
		recordID string
		wantErr  error
	}{
		{recordID: "r-rent", wantErr: ErrNotSalaryPayout},
		{recordID: "missing", wantErr: ErrRecordNotFound},
		{recordID: " ", wantErr: ErrInvalidRecordID},
	}
	for _, testCase := range testCases {
		if _, err := service.RederivePayout(context.Background(), testCase.recordID); !errors.Is(err, testCase.wantErr) {
			test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
		}
	}
}

func TestIsSalaryCategory(test *testing.T) {
	test.Parallel()
	testCases := map[string]bool{
		"Salary":            true,
		"MAAŞ":              true,
		"maas avansı":       true,
		"Personel Maaşı":    true,
		"monthly salary":    true,
		"rent":              false,
		"equipment":         false,
		"":                  false,
		"sponsorship-bonus": false,
	}
	for category, want := range testCases {
		if got := IsSalaryCategory(category); got != want {
			test.Fatalf("category %q: expected %v, got %v", category, want, got)
		}
	}
}

func TestRecordAndSettlePayment(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)
	ctx := context.Background()

	payment, err := service.RecordPayment(ctx, PaymentInput{
		Recipient: Subject{Kind: SubjectStreamer, ID: "S1"},
		Amount:    "3000,50",
		Period:    "2024-03",
	})
	if err != nil {
		test.Fatalf("record payment: %v", err)
	}
	if payment.Paid() || payment.Type != PaymentTypeSalary || !payment.Amount.Equal(mustDecimal(test, "3000.5")) {
		test.Fatalf("unexpected payment: %+v", payment)
	}
	paid, err := service.MarkPaymentPaid(ctx, SubjectStreamer, payment.ID)
	if err != nil {
		test.Fatalf("mark paid: %v", err)
	}
	if !paid.PaidAt.Equal(fixedNow) {
		test.Fatalf("expected paid at %v, got %v", fixedNow, paid.PaidAt)
	}
	if _, err := service.MarkPaymentPaid(ctx, SubjectStreamer, payment.ID); !errors.Is(err, ErrPaymentAlreadyPaid) {
		test.Fatalf(errorMismatchMessage, ErrPaymentAlreadyPaid, err)
	}
	if _, err := service.MarkPaymentPaid(ctx, SubjectVoiceActor, payment.ID); !errors.Is(err, ErrInvalidPaymentKind) {
		test.Fatalf(errorMismatchMessage, ErrInvalidPaymentKind, err)
	}
}

func TestRecordPaymentValidation(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		input   PaymentInput
		wantErr error
	}{
		{name: "voice actor recipient", input: PaymentInput{Recipient: Subject{Kind: SubjectVoiceActor, ID: "V1"}, Amount: "10", Period: "2024-03"}, wantErr: ErrInvalidPaymentKind},
		{name: "blank recipient", input: PaymentInput{Recipient: Subject{Kind: SubjectStreamer, ID: " "}, Amount: "10", Period: "2024-03"}, wantErr: ErrInvalidSubject},
		{name: "zero amount", input: PaymentInput{Recipient: Subject{Kind: SubjectStreamer, ID: "S1"}, Amount: "0", Period: "2024-03"}, wantErr: ErrInvalidAmount},
		{name: "bad period", input: PaymentInput{Recipient: Subject{Kind: SubjectStreamer, ID: "S1"}, Amount: "10", Period: "March"}, wantErr: ErrInvalidPeriod},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			service := mustNewService(test, newStubStore(test))
			if _, err := service.RecordPayment(context.Background(), testCase.input); !errors.Is(err, testCase.wantErr) {
				test.Fatalf(errorMismatchMessage, testCase.wantErr, err)
			}
		})
	}
}
