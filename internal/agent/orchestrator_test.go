package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"gentabs/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBoundary scripts the generation boundary for pipeline tests.
type fakeBoundary struct {
	mu        sync.Mutex
	createErr error
	refineErr error
	result    *schema.AppSchema
	block     chan struct{} // when set, Create blocks until closed
	calls     int
}

func (f *fakeBoundary) Create(ctx context.Context, items []schema.ContextItem, instruction string) (*schema.AppSchema, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.result, nil
}

func (f *fakeBoundary) Refine(ctx context.Context, current *schema.AppSchema, history []schema.Message, instruction string) (*schema.AppSchema, error) {
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	return f.result, nil
}

// recorder collects every published snapshot.
type recorder struct {
	mu        sync.Mutex
	snapshots [][]StageStatus
}

func (r *recorder) notify(snap []StageStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snap)
}

func (r *recorder) all() [][]StageStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]StageStatus, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

func testApp(t *testing.T, typ schema.AppType) *schema.AppSchema {
	t.Helper()
	return &schema.AppSchema{
		Type:  typ,
		Title: "t",
		Data:  json.RawMessage(`{}`),
	}
}

func workingCount(snap []StageStatus) int {
	n := 0
	for _, s := range snap {
		if s.Status == StatusWorking {
			n++
		}
	}
	return n
}

func TestProcessRequest_SnapshotSequence(t *testing.T) {
	rec := &recorder{}
	boundary := &fakeBoundary{result: testApp(t, schema.TypeComparison)}
	o := NewOrchestrator(boundary, rec.notify, WithStageDelay(0))

	app, err := o.ProcessRequest(context.Background(), nil, "compare")
	if err != nil {
		t.Fatalf("ProcessRequest failed: %v", err)
	}
	if app.Type != schema.TypeComparison {
		t.Errorf("unexpected type %s", app.Type)
	}

	snaps := rec.all()
	if len(snaps) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(snaps))
	}

	// Exactly one stage works at a time; each snapshot is a full replacement.
	for i, snap := range snaps {
		if len(snap) != 3 {
			t.Errorf("snapshot %d has %d stages, want 3", i, len(snap))
		}
		if n := workingCount(snap); n > 1 {
			t.Errorf("snapshot %d has %d working stages", i, n)
		}
	}

	wantWorking := []Stage{StageCollector, StageReasoner, StageArchitect}
	for i, stage := range wantWorking {
		found := false
		for _, s := range snaps[i] {
			if s.Stage == stage && s.Status == StatusWorking {
				found = true
			}
		}
		if !found {
			t.Errorf("snapshot %d: expected %s working", i, stage)
		}
	}

	final := snaps[3]
	for _, s := range final {
		if s.Status != StatusDone {
			t.Errorf("final snapshot: %s is %s, want done", s.Stage, s.Status)
		}
	}

	// The reasoner snapshot is annotated with the resolved type.
	annotated := false
	for _, s := range snaps[2] {
		if s.Stage == StageReasoner && s.Status == StatusDone && s.Message != "" {
			annotated = true
		}
	}
	if !annotated {
		t.Error("reasoner done status not annotated with resolved type")
	}
}

func TestProcessRequest_FailureEmitsSingleErrorStatus(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("empty response")
	boundary := &fakeBoundary{createErr: boom}
	o := NewOrchestrator(boundary, rec.notify, WithStageDelay(0))

	_, err := o.ProcessRequest(context.Background(), nil, "compare")
	if !errors.Is(err, boom) {
		t.Fatalf("expected generation error to propagate, got %v", err)
	}

	errorEmissions := 0
	for _, snap := range rec.all() {
		for _, s := range snap {
			if s.Status == StatusError {
				if s.Stage != StageArchitect {
					t.Errorf("error status on %s, want %s", s.Stage, StageArchitect)
				}
				errorEmissions++
			}
		}
	}
	if errorEmissions != 1 {
		t.Errorf("expected exactly one error emission, got %d", errorEmissions)
	}
}

func TestRefineRequest_Sequence(t *testing.T) {
	rec := &recorder{}
	boundary := &fakeBoundary{result: testApp(t, schema.TypeSummary)}
	o := NewOrchestrator(boundary, rec.notify, WithStageDelay(0))

	_, err := o.RefineRequest(context.Background(), testApp(t, schema.TypeSummary), nil, "tighten it")
	if err != nil {
		t.Fatalf("RefineRequest failed: %v", err)
	}

	snaps := rec.all()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0][0].Stage != StageArchitect || snaps[0][0].Status != StatusWorking {
		t.Errorf("first snapshot = %+v, want architect working", snaps[0][0])
	}
	if snaps[1][0].Status != StatusDone {
		t.Errorf("second snapshot = %+v, want architect done", snaps[1][0])
	}
}

func TestRefineRequest_FailureEmitsErrorStatus(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("malformed")
	boundary := &fakeBoundary{refineErr: boom}
	o := NewOrchestrator(boundary, rec.notify, WithStageDelay(0))

	_, err := o.RefineRequest(context.Background(), testApp(t, schema.TypeSummary), nil, "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected refine error to propagate, got %v", err)
	}

	snaps := rec.all()
	last := snaps[len(snaps)-1]
	if last[0].Stage != StageArchitect || last[0].Status != StatusError {
		t.Errorf("expected architect error emission, got %+v", last[0])
	}
}

func TestBusyGuard_RejectsConcurrentRequest(t *testing.T) {
	rec := &recorder{}
	block := make(chan struct{})
	boundary := &fakeBoundary{result: testApp(t, schema.TypeSummary), block: block}
	o := NewOrchestrator(boundary, rec.notify, WithStageDelay(0))

	done := make(chan error, 1)
	go func() {
		_, err := o.ProcessRequest(context.Background(), nil, "first")
		done <- err
	}()

	// Wait until the first request reaches the boundary.
	deadline := time.After(2 * time.Second)
	for {
		boundary.mu.Lock()
		calls := boundary.calls
		boundary.mu.Unlock()
		if calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first request never reached the boundary")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := o.ProcessRequest(context.Background(), nil, "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for concurrent request, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	// Slot is free again after the run completes.
	if _, err := o.ProcessRequest(context.Background(), nil, "third"); err != nil {
		t.Errorf("expected third request to run, got %v", err)
	}
}

func TestInvalidate_DiscardsStaleResult(t *testing.T) {
	rec := &recorder{}
	block := make(chan struct{})
	boundary := &fakeBoundary{result: testApp(t, schema.TypeSummary), block: block}
	o := NewOrchestrator(boundary, rec.notify, WithStageDelay(0))

	done := make(chan error, 1)
	go func() {
		_, err := o.ProcessRequest(context.Background(), nil, "stale")
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for {
		boundary.mu.Lock()
		calls := boundary.calls
		boundary.mu.Unlock()
		if calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("request never reached the boundary")
		case <-time.After(5 * time.Millisecond):
		}
	}

	o.Invalidate()
	before := len(rec.all())
	close(block)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}

	// No further snapshots after invalidation.
	if after := len(rec.all()); after != before {
		t.Errorf("stale request emitted %d snapshots after invalidation", after-before)
	}
}

func TestProcessRequest_ContextCancelledDuringDelay(t *testing.T) {
	rec := &recorder{}
	boundary := &fakeBoundary{result: testApp(t, schema.TypeSummary)}
	o := NewOrchestrator(boundary, rec.notify, WithStageDelay(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := o.ProcessRequest(ctx, nil, "slow")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIdleStatuses(t *testing.T) {
	snap := IdleStatuses()
	if len(snap) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(snap))
	}
	for _, s := range snap {
		if s.Status != StatusIdle {
			t.Errorf("%s = %s, want idle", s.Stage, s.Status)
		}
	}
}
