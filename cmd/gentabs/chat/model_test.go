package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gentabs/internal/agent"
	"gentabs/internal/schema"
	"gentabs/internal/source"
	"gentabs/internal/workspace"
)

type scriptedBoundary struct {
	app *schema.AppSchema
	err error
}

func (b *scriptedBoundary) Create(ctx context.Context, items []schema.ContextItem, instruction string) (*schema.AppSchema, error) {
	return b.app, b.err
}

func (b *scriptedBoundary) Refine(ctx context.Context, current *schema.AppSchema, history []schema.Message, instruction string) (*schema.AppSchema, error) {
	return b.app, b.err
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	ws := workspace.New()
	m := New(Deps{
		Workspace:    ws,
		Orchestrator: agent.NewOrchestrator(&scriptedBoundary{}, nil, agent.WithStageDelay(0)),
	})
	return m
}

func lastMessage(t *testing.T, m Model) schema.Message {
	t.Helper()
	msgs := m.ws.Messages()
	if len(msgs) == 0 {
		t.Fatal("no messages")
	}
	return msgs[len(msgs)-1]
}

func TestHandleCommand_Help(t *testing.T) {
	m := newTestModel(t)
	m.handleCommand("/help")
	msg := lastMessage(t, m)
	if msg.Role != schema.RoleSystem {
		t.Errorf("help role = %s", msg.Role)
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	m := newTestModel(t)
	m.handleCommand("/bogus")
	if msg := lastMessage(t, m); msg.Role != schema.RoleSystem {
		t.Errorf("unexpected response: %+v", msg)
	}
}

func TestHandleCommand_Demo(t *testing.T) {
	m := newTestModel(t)
	m.handleCommand("/demo phone-shopping")
	if m.ws.App() == nil {
		t.Fatal("demo did not install an app")
	}
	if len(m.ws.Sources()) == 0 {
		t.Error("demo did not install sources")
	}
}

func TestHandleCommand_Reset(t *testing.T) {
	m := newTestModel(t)
	m.ws.SetApp(&schema.AppSchema{Type: schema.TypeSummary})
	m.handleCommand("/reset")
	if m.ws.App() != nil {
		t.Error("reset did not clear the app")
	}
}

func TestHandleCommand_QuitReturnsQuitCmd(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.handleCommand("/quit")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestHandleResult_Success(t *testing.T) {
	m := newTestModel(t)
	m.generating = true
	app := &schema.AppSchema{
		Type:  schema.TypeComparison,
		Title: "Built",
		Data:  json.RawMessage(`{}`),
	}

	updated, _ := m.handleResult(resultMsg{app: app})
	got := updated.(Model)
	if got.generating {
		t.Error("generating flag not cleared")
	}
	if got.ws.App() != app {
		t.Error("app not stored")
	}
	if msg := lastMessage(t, got); msg.Role != schema.RoleAssistant {
		t.Errorf("confirmation role = %s", msg.Role)
	}
}

func TestHandleResult_FailureAppendsSystemMessage(t *testing.T) {
	m := newTestModel(t)
	m.generating = true

	updated, _ := m.handleResult(resultMsg{err: errors.New("empty response")})
	got := updated.(Model)
	if msg := lastMessage(t, got); msg.Role != schema.RoleSystem {
		t.Errorf("failure role = %s", msg.Role)
	}
}

func TestHandleResult_SupersededIsSilent(t *testing.T) {
	m := newTestModel(t)
	before := len(m.ws.Messages())

	updated, _ := m.handleResult(resultMsg{err: agent.ErrSuperseded})
	got := updated.(Model)
	if len(got.ws.Messages()) != before {
		t.Error("superseded result should not add messages")
	}
}

// blockingBoundary parks Create until released, so a test can act while a
// generation is in flight.
type blockingBoundary struct {
	entered chan struct{}
	release chan struct{}
	app     *schema.AppSchema
}

func (b *blockingBoundary) Create(ctx context.Context, items []schema.ContextItem, instruction string) (*schema.AppSchema, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.app, nil
}

func (b *blockingBoundary) Refine(ctx context.Context, current *schema.AppSchema, history []schema.Message, instruction string) (*schema.AppSchema, error) {
	return b.app, nil
}

func TestResetDuringGeneration_DiscardsLateResult(t *testing.T) {
	boundary := &blockingBoundary{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		app:     &schema.AppSchema{Type: schema.TypeSummary, Title: "late", Data: json.RawMessage(`{}`)},
	}
	m := New(Deps{Workspace: workspace.New()})
	m = m.WithOrchestrator(agent.NewOrchestrator(boundary, m.StatusNotifier(), agent.WithStageDelay(0)))

	m.generating = true
	results := make(chan tea.Msg, 1)
	go func() { results <- m.generate("make a summary")() }()
	<-boundary.entered

	// User resets while the run is still in flight.
	m.handleCommand("/reset")
	if m.generating {
		t.Error("reset did not clear the in-flight flag")
	}

	close(boundary.release)
	res, ok := (<-results).(resultMsg)
	if !ok {
		t.Fatal("expected a resultMsg")
	}
	if !errors.Is(res.err, agent.ErrSuperseded) {
		t.Fatalf("expected superseded run, got app=%v err=%v", res.app, res.err)
	}

	before := len(m.ws.Messages())
	updated, _ := m.handleResult(res)
	got := updated.(Model)
	if got.ws.App() != nil {
		t.Errorf("late result overwrote the reset: app type=%s", got.ws.App().Type)
	}
	if len(got.ws.Messages()) != before {
		t.Error("superseded result added chat messages")
	}
}

func TestDemoDuringGeneration_SupersedesRun(t *testing.T) {
	boundary := &blockingBoundary{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		app:     &schema.AppSchema{Type: schema.TypeSummary, Title: "late", Data: json.RawMessage(`{}`)},
	}
	m := New(Deps{Workspace: workspace.New()})
	m = m.WithOrchestrator(agent.NewOrchestrator(boundary, nil, agent.WithStageDelay(0)))

	m.generating = true
	results := make(chan tea.Msg, 1)
	go func() { results <- m.generate("make a summary")() }()
	<-boundary.entered

	m.handleCommand("/demo phone-shopping")
	close(boundary.release)

	res := (<-results).(resultMsg)
	if !errors.Is(res.err, agent.ErrSuperseded) {
		t.Fatalf("expected superseded run, got %v", res.err)
	}
	updated, _ := m.handleResult(res)
	if app := updated.(Model).ws.App(); app == nil || app.Title != "Phone Shopping Shortlist" {
		t.Errorf("demo app was replaced by the stale result: %+v", app)
	}
}

func TestHandleCommand_KanbanItem(t *testing.T) {
	m := newTestModel(t)
	m.ws.SetApp(&schema.AppSchema{
		Type: schema.TypeKanban,
		Data: json.RawMessage(`{"columns":[{"id":"todo","title":"To Do","items":[]}]}`),
	})

	m.handleCommand("/item todo Buy milk")

	board, err := m.ws.App().Kanban()
	if err != nil {
		t.Fatalf("board decode failed: %v", err)
	}
	if len(board.Columns[0].Items) != 1 || board.Columns[0].Items[0].Title != "Buy milk" {
		t.Errorf("unexpected board after add: %+v", board.Columns[0].Items)
	}
}

func TestHandleCommand_KanbanItemWithoutBoard(t *testing.T) {
	m := newTestModel(t)
	m.handleCommand("/item todo x")
	if msg := lastMessage(t, m); msg.Role != schema.RoleSystem {
		t.Errorf("expected system message, got %+v", msg)
	}
}

func TestStatusNotifier_DropsWhenFull(t *testing.T) {
	m := newTestModel(t)
	notify := m.StatusNotifier()
	// Flood past the buffer; must not block.
	for i := 0; i < 100; i++ {
		notify(agent.IdleStatuses())
	}
}

func TestApplySourceEvent_UpdateReplacesByURL(t *testing.T) {
	m := newTestModel(t)
	m.applySourceEvent(sourceEvent("file:///notes.md", "v1"))
	m.applySourceEvent(sourceEvent("file:///notes.md", "v2"))

	items := m.ws.Sources()
	if len(items) != 1 {
		t.Fatalf("expected 1 source, got %d", len(items))
	}
	if items[0].Content != "v2" {
		t.Errorf("content = %q, want v2", items[0].Content)
	}
}

func sourceEvent(url, content string) source.Event {
	return source.Event{Item: schema.ContextItem{Title: "notes", URL: url, Content: content}}
}
