package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/internal/handler"
	"github.com/fieldmate/backend/internal/route"
	"github.com/fieldmate/backend/internal/storage/models"
)

type fakeEvaluator struct {
	cov domain.Coverage
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req domain.Request) domain.Coverage {
	return f.cov
}

type fakeDetector struct {
	mu       sync.Mutex
	calls    int
	onDetect func()
}

func (f *fakeDetector) Detect(ctx context.Context, req domain.Request, cov domain.Coverage) domain.RepairRequest {
	f.mu.Lock()
	f.calls++
	hook := f.onDetect
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return domain.RepairRequest{
		QueryText:   req.Text,
		Fingerprint: "fp-" + req.Text,
		SearchTerms: []string{req.Text},
		Priority:    50,
	}
}

func (f *fakeDetector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGapStore struct {
	mu    sync.Mutex
	freq  map[string]int
	err   error
	calls int
}

func newFakeGapStore() *fakeGapStore {
	return &fakeGapStore{freq: make(map[string]int)}
}

func (f *fakeGapStore) UpsertGap(ctx context.Context, repair domain.RepairRequest) (*models.GapRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	f.freq[repair.Fingerprint]++
	return &models.GapRecord{
		ID:               "gap-" + repair.Fingerprint,
		QueryFingerprint: repair.Fingerprint,
		Frequency:        f.freq[repair.Fingerprint],
		Priority:         repair.Priority,
	}, f.freq[repair.Fingerprint] == 1, nil
}

func (f *fakeGapStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGuard struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: make(map[string]bool)}
}

func (f *fakeGuard) AcquireEnqueueGuard(ctx context.Context, fingerprint string, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.seen[fingerprint] {
		return false, nil
	}
	f.seen[fingerprint] = true
	return true, nil
}

type enqueueCall struct {
	fingerprint string
	gapID       string
}

type fakeTrigger struct {
	ch chan enqueueCall
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{ch: make(chan enqueueCall, 16)}
}

func (f *fakeTrigger) Enqueue(ctx context.Context, repair domain.RepairRequest, gapID string) {
	f.ch <- enqueueCall{fingerprint: repair.Fingerprint, gapID: gapID}
}

func (f *fakeTrigger) wait(t *testing.T) enqueueCall {
	t.Helper()
	select {
	case call := <-f.ch:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for research enqueue")
		return enqueueCall{}
	}
}

func (f *fakeTrigger) assertNone(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.ch:
		t.Fatalf("unexpected research enqueue: %+v", call)
	case <-time.After(100 * time.Millisecond):
	}
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  int
	routes []route.Route
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, rt route.Route, req domain.Request, cov domain.Coverage) domain.Answer {
	f.mu.Lock()
	f.calls++
	f.routes = append(f.routes, rt)
	f.mu.Unlock()
	return domain.Answer{Text: "handler answer", Citations: []string{"doc-1"}}
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testRig struct {
	router     *Router
	detector   *fakeDetector
	store      *fakeGapStore
	guard      *fakeGuard
	trigger    *fakeTrigger
	dispatcher *fakeDispatcher
}

func newTestRig(cov domain.Coverage) *testRig {
	rig := &testRig{
		detector:   &fakeDetector{},
		store:      newFakeGapStore(),
		guard:      newFakeGuard(),
		trigger:    newFakeTrigger(),
		dispatcher: &fakeDispatcher{},
	}
	rig.router = New(
		&fakeEvaluator{cov: cov},
		rig.detector,
		rig.store,
		rig.guard,
		rig.trigger,
		rig.dispatcher,
		nil,
		Config{},
	)
	return rig
}

func TestAskEmptyQuery(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageStrong})

	_, err := rig.router.Ask(context.Background(), domain.Request{})
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Ask(empty) error = %v, want ErrEmptyQuery", err)
	}
}

func TestAskStrongCoverage(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageStrong, Confidence: 0.9})

	resp, err := rig.router.Ask(context.Background(), domain.Request{Text: "carrier chiller specs"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if resp.Route != "A" {
		t.Errorf("route = %q, want A", resp.Route)
	}
	if resp.Text != "handler answer" {
		t.Errorf("text = %q, want handler answer", resp.Text)
	}
	if resp.Escalated {
		t.Error("escalated = true for a direct answer")
	}
	if resp.CoverageLevel != "STRONG" {
		t.Errorf("coverage level = %q, want STRONG", resp.CoverageLevel)
	}

	rig.trigger.assertNone(t)
	if rig.detector.callCount() != 0 {
		t.Error("gap detection ran for strong coverage")
	}
	if rig.store.callCount() != 0 {
		t.Error("gap store written for strong coverage")
	}
}

func TestAskNoCoverageTriggersGapPipeline(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageNone})

	resp, err := rig.router.Ask(context.Background(), domain.Request{Text: "obscure fault"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if resp.Route != "C" {
		t.Errorf("route = %q, want C", resp.Route)
	}
	if resp.Text == "" {
		t.Error("fallback answer is empty")
	}

	call := rig.trigger.wait(t)
	if call.fingerprint != "fp-obscure fault" {
		t.Errorf("enqueued fingerprint = %q", call.fingerprint)
	}
	if call.gapID != "gap-fp-obscure fault" {
		t.Errorf("enqueued gap id = %q, want persisted record id", call.gapID)
	}
	if rig.store.callCount() != 1 {
		t.Errorf("store calls = %d, want 1", rig.store.callCount())
	}
}

func TestAskThinCoverageEnrichesAndRepairs(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageThin, Confidence: 0.45})

	resp, err := rig.router.Ask(context.Background(), domain.Request{Text: "rare pump model"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if resp.Route != "B" {
		t.Errorf("route = %q, want B", resp.Route)
	}
	rig.trigger.wait(t)
	if rig.dispatcher.callCount() != 1 {
		t.Errorf("dispatcher calls = %d, want 1", rig.dispatcher.callCount())
	}
}

func TestAskRepeatQueryDeduplicates(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageNone})
	ctx := context.Background()

	if _, err := rig.router.Ask(ctx, domain.Request{Text: "same gap"}); err != nil {
		t.Fatalf("Ask #1: %v", err)
	}
	rig.trigger.wait(t)

	if _, err := rig.router.Ask(ctx, domain.Request{Text: "same gap"}); err != nil {
		t.Fatalf("Ask #2: %v", err)
	}

	// The second pass still records the occurrence but must not re-enqueue.
	rig.trigger.assertNone(t)

	deadline := time.Now().Add(2 * time.Second)
	for rig.store.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rig.store.callCount() != 2 {
		t.Errorf("store calls = %d, want 2 (frequency still tracked)", rig.store.callCount())
	}
}

func TestAskSafetyFlagEscalates(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageStrong, Confidence: 0.95})

	resp, err := rig.router.Ask(context.Background(), domain.Request{
		Text:       "smell gas near the boiler",
		SafetyFlag: true,
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if resp.Route != "D" {
		t.Errorf("route = %q, want D", resp.Route)
	}
	if !resp.Escalated {
		t.Error("escalated = false for a flagged request")
	}
	if resp.Text != handler.EscalationNotice {
		t.Errorf("text = %q, want the fixed escalation notice", resp.Text)
	}
	if rig.dispatcher.callCount() != 0 {
		t.Error("dispatcher invoked for an escalated request")
	}
	rig.trigger.assertNone(t)
}

func TestAskGapStoreFailureStillEnqueues(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageNone})
	rig.store.err = errors.New("disk full")

	if _, err := rig.router.Ask(context.Background(), domain.Request{Text: "lost gap"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	call := rig.trigger.wait(t)
	if call.fingerprint != "fp-lost gap" {
		t.Errorf("enqueued fingerprint = %q", call.fingerprint)
	}
	if call.gapID == "" {
		t.Error("gap id empty; expected synthetic record id")
	}
}

func TestAskGuardFailureEnqueuesAnyway(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageNone})
	rig.guard.err = errors.New("redis down")

	if _, err := rig.router.Ask(context.Background(), domain.Request{Text: "guarded gap"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	rig.trigger.wait(t)
}

func TestAskGapPipelineRunsAfterAnswer(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageNone})

	var dispatchedFirst bool
	rig.detector.onDetect = func() {
		dispatchedFirst = rig.dispatcher.callCount() == 1
	}

	if _, err := rig.router.Ask(context.Background(), domain.Request{Text: "late gap"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	rig.trigger.wait(t)

	if !dispatchedFirst {
		t.Error("gap detection ran before the answer was produced")
	}
}

func TestAskAssignsRequestID(t *testing.T) {
	rig := newTestRig(domain.Coverage{Level: domain.CoverageStrong})

	resp, err := rig.router.Ask(context.Background(), domain.Request{Text: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.ID == "" {
		t.Error("response id is empty")
	}
}
