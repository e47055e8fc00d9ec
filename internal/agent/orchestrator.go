// Package agent sequences the generation pipeline and publishes observable
// stage status. The pipeline has three fixed, ordered stages; every status
// change is published as a full replacement snapshot so observers always see
// an internally consistent view.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gentabs/internal/schema"
)

// Stage names the fixed pipeline stages, in order.
type Stage string

const (
	StageCollector Stage = "Context Collector"
	StageReasoner  Stage = "Intent Reasoner"
	StageArchitect Stage = "App Architect"
)

// Status is the lifecycle state of one stage.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// StageStatus is one stage's state in a snapshot.
type StageStatus struct {
	Stage   Stage  `json:"stage"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Notifier receives full status snapshots. The slice is owned by the
// receiver; the orchestrator never reuses it.
type Notifier func([]StageStatus)

// Boundary is the generation boundary the orchestrator drives.
// *generate.Generator satisfies it.
type Boundary interface {
	Create(ctx context.Context, items []schema.ContextItem, instruction string) (*schema.AppSchema, error)
	Refine(ctx context.Context, current *schema.AppSchema, history []schema.Message, instruction string) (*schema.AppSchema, error)
}

var (
	// ErrBusy is returned when a request arrives while another is in
	// flight. Only one run may be active at a time.
	ErrBusy = errors.New("agent: a request is already in flight")

	// ErrSuperseded is returned when a response arrives after the run was
	// invalidated. The stale result is discarded, never applied.
	ErrSuperseded = errors.New("agent: request superseded")
)

// IdleStatuses returns the all-idle snapshot shown before any run.
func IdleStatuses() []StageStatus {
	return []StageStatus{
		{Stage: StageCollector, Status: StatusIdle},
		{Stage: StageReasoner, Status: StatusIdle},
		{Stage: StageArchitect, Status: StatusIdle},
	}
}

// Orchestrator runs the create and refine pipelines. It enforces the
// single-flight rule with an explicit busy guard and a monotonically
// increasing request id; late responses from invalidated runs are dropped.
type Orchestrator struct {
	boundary Boundary
	notify   Notifier
	log      *zap.Logger

	// Bridging delay between the scripted early stages, so observers can
	// see the pipeline advance. Zero in tests.
	stageDelay time.Duration

	mu    sync.Mutex
	busy  bool
	reqID uint64
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithStageDelay sets the bridging delay between scripted stage transitions.
func WithStageDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.stageDelay = d }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator creates an orchestrator around the generation boundary.
// notify may be nil when no observer is interested.
func NewOrchestrator(boundary Boundary, notify Notifier, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		boundary:   boundary,
		notify:     notify,
		log:        zap.NewNop(),
		stageDelay: 600 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// begin claims the single run slot and issues a request id.
func (o *Orchestrator) begin() (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return 0, ErrBusy
	}
	o.busy = true
	o.reqID++
	return o.reqID, nil
}

// finish releases the run slot if the request still owns it.
func (o *Orchestrator) finish(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id == o.reqID {
		o.busy = false
	}
}

// current reports whether the request id is still the latest one issued.
func (o *Orchestrator) current(id uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return id == o.reqID
}

// Invalidate discards any in-flight run: its remaining emissions are
// suppressed and its result is reported as superseded. The caller typically
// follows up with a fresh request.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reqID++
	o.busy = false
}

// emit publishes a snapshot unless the request has been superseded.
func (o *Orchestrator) emit(id uint64, snapshot []StageStatus) {
	if o.notify == nil || !o.current(id) {
		return
	}
	out := make([]StageStatus, len(snapshot))
	copy(out, snapshot)
	o.notify(out)
}

// sleep waits for the bridging delay, honoring context cancellation.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessRequest runs the full three-stage pipeline for a fresh generation.
func (o *Orchestrator) ProcessRequest(ctx context.Context, items []schema.ContextItem, instruction string) (*schema.AppSchema, error) {
	id, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer o.finish(id)

	o.log.Info("pipeline started",
		zap.Uint64("request", id),
		zap.Int("context_items", len(items)))

	o.emit(id, []StageStatus{
		{Stage: StageCollector, Status: StatusWorking, Message: "Gathering context..."},
		{Stage: StageReasoner, Status: StatusIdle},
		{Stage: StageArchitect, Status: StatusIdle},
	})
	if err := o.sleep(ctx, o.stageDelay); err != nil {
		return nil, err
	}

	o.emit(id, []StageStatus{
		{Stage: StageCollector, Status: StatusDone, Message: "Ready"},
		{Stage: StageReasoner, Status: StatusWorking, Message: "Analyzing intent..."},
		{Stage: StageArchitect, Status: StatusIdle},
	})

	app, err := o.boundary.Create(ctx, items, instruction)
	if err != nil {
		o.log.Warn("generation failed", zap.Uint64("request", id), zap.Error(err))
		o.emit(id, []StageStatus{
			{Stage: StageCollector, Status: StatusDone},
			{Stage: StageReasoner, Status: StatusDone},
			{Stage: StageArchitect, Status: StatusError, Message: "Generation failed"},
		})
		return nil, err
	}

	if !o.current(id) {
		o.log.Info("discarding stale generation result", zap.Uint64("request", id))
		return nil, ErrSuperseded
	}

	o.emit(id, []StageStatus{
		{Stage: StageCollector, Status: StatusDone},
		{Stage: StageReasoner, Status: StatusDone, Message: fmt.Sprintf("Identified type: %s", app.Type)},
		{Stage: StageArchitect, Status: StatusWorking, Message: "Building app..."},
	})
	if err := o.sleep(ctx, o.stageDelay*2/3); err != nil {
		return nil, err
	}

	o.emit(id, []StageStatus{
		{Stage: StageCollector, Status: StatusDone},
		{Stage: StageReasoner, Status: StatusDone},
		{Stage: StageArchitect, Status: StatusDone, Message: "Finished"},
	})

	o.log.Info("pipeline finished",
		zap.Uint64("request", id),
		zap.String("type", string(app.Type)))
	return app, nil
}

// RefineRequest runs the single-stage refinement pipeline. Unlike creation,
// only the architect stage participates; its error path mirrors creation and
// emits an explicit error status before propagating.
func (o *Orchestrator) RefineRequest(ctx context.Context, current *schema.AppSchema, history []schema.Message, instruction string) (*schema.AppSchema, error) {
	id, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer o.finish(id)

	o.log.Info("refinement started",
		zap.Uint64("request", id),
		zap.String("type", string(current.Type)))

	o.emit(id, []StageStatus{
		{Stage: StageArchitect, Status: StatusWorking, Message: "Refining app..."},
	})

	app, err := o.boundary.Refine(ctx, current, history, instruction)
	if err != nil {
		o.log.Warn("refinement failed", zap.Uint64("request", id), zap.Error(err))
		o.emit(id, []StageStatus{
			{Stage: StageArchitect, Status: StatusError, Message: "Refinement failed"},
		})
		return nil, err
	}

	if !o.current(id) {
		o.log.Info("discarding stale refinement result", zap.Uint64("request", id))
		return nil, ErrSuperseded
	}

	o.emit(id, []StageStatus{
		{Stage: StageArchitect, Status: StatusDone, Message: "Updated"},
	})
	return app, nil
}
