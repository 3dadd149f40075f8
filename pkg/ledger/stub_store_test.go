package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const errorMismatchMessage = "expected %v, got %v"

var errStoreFailure = errors.New("store error")

var fixedNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

type stubStore struct {
	mu       sync.Mutex
	sequence int
	records  map[string]GeneralRecord
	payments []Payment
	scripts  map[string]Script
	packs    map[string]EditPack

	insertRecordError   error
	getRecordError      error
	listRecordsError    error
	insertPaymentError  error
	findPaymentError    error
	listStreamersError  error
	listTeamError       error
	getScriptError      error
	updateScriptError   error
	listScriptsError    error
	insertPackError     error
	beforeAssign        func()
	beforeUpdateScript  func()
	insertPaymentCalls  int
	updateScriptCalls   int
	insertEditPackCalls int
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		records: make(map[string]GeneralRecord),
		scripts: make(map[string]Script),
		packs:   make(map[string]EditPack),
	}
}

func (store *stubStore) nextID(prefix string) string {
	store.sequence++
	return fmt.Sprintf("%s-%d", prefix, store.sequence)
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) InsertGeneralRecord(ctx context.Context, record GeneralRecord) (GeneralRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.insertRecordError != nil {
		return GeneralRecord{}, store.insertRecordError
	}
	if record.ID == "" {
		record.ID = store.nextID("rec")
	}
	store.records[record.ID] = record
	return record, nil
}

func (store *stubStore) GetGeneralRecord(ctx context.Context, recordID string) (GeneralRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.getRecordError != nil {
		return GeneralRecord{}, store.getRecordError
	}
	record, ok := store.records[recordID]
	if !ok {
		return GeneralRecord{}, ErrRecordNotFound
	}
	return record, nil
}

func (store *stubStore) ListGeneralRecords(ctx context.Context, window Window) ([]GeneralRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.listRecordsError != nil {
		return nil, store.listRecordsError
	}
	records := make([]GeneralRecord, 0, len(store.records))
	for _, record := range store.records {
		records = append(records, record)
	}
	return records, nil
}

func (store *stubStore) InsertPayment(ctx context.Context, payment Payment) (Payment, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.insertPaymentCalls++
	if store.insertPaymentError != nil {
		return Payment{}, store.insertPaymentError
	}
	if payment.RelatedRecordID != "" {
		for _, existing := range store.payments {
			if existing.Recipient == payment.Recipient && existing.Period == payment.Period && existing.RelatedRecordID == payment.RelatedRecordID {
				return Payment{}, ErrDuplicatePayout
			}
		}
	}
	if payment.ID == "" {
		payment.ID = store.nextID("pay")
	}
	store.payments = append(store.payments, payment)
	return payment, nil
}

func (store *stubStore) FindPaymentByRecord(ctx context.Context, recordID string) (Payment, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.findPaymentError != nil {
		return Payment{}, store.findPaymentError
	}
	for _, payment := range store.payments {
		if payment.RelatedRecordID == recordID {
			return payment, nil
		}
	}
	return Payment{}, ErrPaymentNotFound
}

func (store *stubStore) MarkPaymentPaid(ctx context.Context, recipientKind SubjectKind, paymentID string, paidAt time.Time) (Payment, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for index, payment := range store.payments {
		if payment.ID != paymentID || payment.Recipient.Kind != recipientKind {
			continue
		}
		if payment.Paid() {
			return Payment{}, ErrPaymentAlreadyPaid
		}
		payment.PaidAt = paidAt
		payment.UpdatedAt = paidAt
		store.payments[index] = payment
		return payment, nil
	}
	return Payment{}, ErrPaymentNotFound
}

func (store *stubStore) ListPayments(ctx context.Context, recipientKind SubjectKind, window Window) ([]Payment, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if recipientKind == SubjectStreamer && store.listStreamersError != nil {
		return nil, store.listStreamersError
	}
	if recipientKind == SubjectTeamMember && store.listTeamError != nil {
		return nil, store.listTeamError
	}
	var payments []Payment
	for _, payment := range store.payments {
		if payment.Recipient.Kind == recipientKind {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

func (store *stubStore) InsertScript(ctx context.Context, script Script) (Script, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if script.ID == "" {
		script.ID = store.nextID("script")
	}
	store.scripts[script.ID] = script
	return script, nil
}

func (store *stubStore) GetScript(ctx context.Context, scriptID string) (Script, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.getScriptError != nil {
		return Script{}, store.getScriptError
	}
	script, ok := store.scripts[scriptID]
	if !ok {
		return Script{}, ErrScriptNotFound
	}
	return script, nil
}

func (store *stubStore) AssignVoiceActor(ctx context.Context, scriptID string, voiceActorID string, at time.Time) error {
	if store.beforeAssign != nil {
		store.beforeAssign()
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	script, ok := store.scripts[scriptID]
	if !ok {
		return ErrScriptNotFound
	}
	if script.Status == ScriptArchived {
		return ErrScriptArchived
	}
	if script.VoiceActorID != "" {
		return ErrScriptAlreadyAssigned
	}
	script.VoiceActorID = voiceActorID
	script.UpdatedAt = at
	script.Version++
	store.scripts[scriptID] = script
	return nil
}

func (store *stubStore) UpdateScript(ctx context.Context, script Script, expectedVersion int64) (Script, error) {
	if store.beforeUpdateScript != nil {
		store.beforeUpdateScript()
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.updateScriptCalls++
	if store.updateScriptError != nil {
		return Script{}, store.updateScriptError
	}
	current, ok := store.scripts[script.ID]
	if !ok {
		return Script{}, ErrScriptNotFound
	}
	if current.Version != expectedVersion {
		return Script{}, ErrScriptModified
	}
	script.VoiceActorID = current.VoiceActorID
	script.CreatorID = current.CreatorID
	script.Version = expectedVersion + 1
	store.scripts[script.ID] = script
	return script, nil
}

func (store *stubStore) ListPaidScripts(ctx context.Context, window Window) ([]Script, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.listScriptsError != nil {
		return nil, store.listScriptsError
	}
	var scripts []Script
	for _, script := range store.scripts {
		if script.Status == ScriptPaid {
			scripts = append(scripts, script)
		}
	}
	return scripts, nil
}

func (store *stubStore) InsertEditPack(ctx context.Context, pack EditPack) (EditPack, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.insertEditPackCalls++
	if store.insertPackError != nil {
		return EditPack{}, store.insertPackError
	}
	if _, exists := store.packs[pack.ScriptID]; exists {
		return EditPack{}, ErrEditPackExists
	}
	if pack.ID == "" {
		pack.ID = store.nextID("pack")
	}
	store.packs[pack.ScriptID] = pack
	return pack, nil
}

func (store *stubStore) GetEditPackByScript(ctx context.Context, scriptID string) (EditPack, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	pack, ok := store.packs[scriptID]
	if !ok {
		return EditPack{}, ErrEditPackNotFound
	}
	return pack, nil
}

func (store *stubStore) GetEditPackByToken(ctx context.Context, token string) (EditPack, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, pack := range store.packs {
		if pack.Token == token {
			return pack, nil
		}
	}
	return EditPack{}, ErrEditPackNotFound
}

func (store *stubStore) UpdateEditPack(ctx context.Context, pack EditPack) (EditPack, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.packs[pack.ScriptID]; !ok {
		return EditPack{}, ErrEditPackNotFound
	}
	store.packs[pack.ScriptID] = pack
	return pack, nil
}

func (store *stubStore) putScript(script Script) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.scripts[script.ID] = script
}

func (store *stubStore) script(test *testing.T, scriptID string) Script {
	test.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()
	script, ok := store.scripts[scriptID]
	if !ok {
		test.Fatalf("script %s missing", scriptID)
	}
	return script
}

func (store *stubStore) teamPayments() []Payment {
	store.mu.Lock()
	defer store.mu.Unlock()
	var payments []Payment
	for _, payment := range store.payments {
		if payment.Recipient.Kind == SubjectTeamMember {
			payments = append(payments, payment)
		}
	}
	return payments
}

type recorderLogger struct {
	mu      sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.entries = append(logger.entries, entry)
}

func (logger *recorderLogger) byOperation(operation string) []OperationLog {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	var matched []OperationLog
	for _, entry := range logger.entries {
		if entry.Operation == operation {
			matched = append(matched, entry)
		}
	}
	return matched
}

type recorderMetrics struct {
	mu          sync.Mutex
	sources     []SourceKind
	payouts     []string
	transitions map[string][]string
}

func (metrics *recorderMetrics) SourceFailed(source SourceKind) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.sources = append(metrics.sources, source)
}

func (metrics *recorderMetrics) PayoutDerived(result string) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.payouts = append(metrics.payouts, result)
}

func (metrics *recorderMetrics) ScriptTransition(transition string, result string) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.transitions == nil {
		metrics.transitions = make(map[string][]string)
	}
	metrics.transitions[transition] = append(metrics.transitions[transition], result)
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, func() time.Time { return fixedNow }, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustDecimal(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal %q: %v", raw, err)
	}
	return value
}

func mustTime(test *testing.T, raw string) time.Time {
	test.Helper()
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		test.Fatalf("time %q: %v", raw, err)
	}
	return value
}

func seedScript(test *testing.T, store *stubStore, script Script) Script {
	test.Helper()
	if script.ID == "" {
		script.ID = "script-1"
	}
	if script.Status == "" {
		script.Status = ScriptWaitingVoice
	}
	if script.CreatorID == "" {
		script.CreatorID = "creator-1"
	}
	if script.Version == 0 {
		script.Version = 1
	}
	store.putScript(script)
	return script
}
