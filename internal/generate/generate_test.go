package generate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"gentabs/internal/schema"
)

func stubClient(response string, err error) Client {
	return ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return response, err
	})
}

func TestCreate_EndToEnd(t *testing.T) {
	// Stub provider returning the canonical comparison payload.
	response := `{"type":"comparison","title":"X","description":"Y","sources":["t1"],"data":{"columns":["C1"],"rows":[{"C1":"v1"}]}}`
	start := time.Now()

	g := New(stubClient(response, nil))
	items := []schema.ContextItem{{ID: "t1", Title: "A", Content: "..."}}

	s, err := g.Create(context.Background(), items, "compare")
	require.NoError(t, err)
	require.Equal(t, schema.TypeComparison, s.Type)

	data, err := s.Comparison()
	require.NoError(t, err)
	require.Equal(t, "v1", data.Rows[0]["C1"])

	if s.CreatedAt.Before(start) {
		t.Errorf("createdAt %v is before call start %v", s.CreatedAt, start)
	}
}

func TestCreate_EmptyContextAllowed(t *testing.T) {
	g := New(stubClient(`{"type":"summary","title":"t","description":"d","sources":[],"data":{"summary":"s","keyPoints":[],"actionItems":[]}}`, nil))

	s, err := g.Create(context.Background(), nil, "summarize nothing")
	require.NoError(t, err)
	require.Equal(t, schema.TypeSummary, s.Type)
}

func TestCreate_EmptyResponse(t *testing.T) {
	g := New(stubClient("   \n", nil))
	_, err := g.Create(context.Background(), nil, "compare")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestCreate_MalformedOutput(t *testing.T) {
	g := New(stubClient("Sure, here is your app!", nil))
	_, err := g.Create(context.Background(), nil, "compare")
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestCreate_NoClient(t *testing.T) {
	g := New(nil)
	_, err := g.Create(context.Background(), nil, "compare")
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestCreate_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("transport down")
	g := New(stubClient("", boom))
	_, err := g.Create(context.Background(), nil, "compare")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestCreate_ModelCreatedAtOverwritten(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	response := `{"type":"summary","title":"t","description":"d","sources":[],"createdAt":"1999-01-01T00:00:00Z","data":{"summary":"s"}}`

	g := New(stubClient(response, nil), WithClock(func() time.Time { return fixed }))
	s, err := g.Create(context.Background(), nil, "summarize")
	require.NoError(t, err)
	require.True(t, s.CreatedAt.Equal(fixed), "model timestamp must be overwritten")
}

func TestCreate_PromptCarriesTaggedContext(t *testing.T) {
	var gotSystem, gotUser string
	client := ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		gotSystem, gotUser = systemPrompt, userPrompt
		return `{"type":"summary","title":"t","description":"d","sources":["tab-9"],"data":{"summary":"s"}}`, nil
	})

	g := New(client, WithLocale("Thai"))
	items := []schema.ContextItem{
		{ID: "tab-9", Title: "Release notes", Content: "v2 ships", URL: "https://example.com/v2"},
		{ID: "tab-10", Title: "Roadmap", Content: "v3 planned", URL: "https://example.com/v3"},
	}
	_, err := g.Create(context.Background(), items, "summarize releases")
	require.NoError(t, err)

	for _, want := range []string{"[ID: tab-9]", "[ID: tab-10]", "Release notes", "https://example.com/v3", `"summarize releases"`} {
		if !strings.Contains(gotUser, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
	if !strings.Contains(gotSystem, "Thai") {
		t.Error("system directive missing configured locale")
	}
	if !strings.Contains(gotSystem, "Output JSON ONLY") {
		t.Error("system directive missing JSON constraint")
	}
}

func TestRefine_StructurePreservedExceptCreatedAt(t *testing.T) {
	current := &schema.AppSchema{
		Type:        schema.TypeComparison,
		Title:       "Frameworks",
		Description: "Side by side",
		Sources:     []string{"tab-1"},
		Data:        json.RawMessage(`{"columns":["C1"],"rows":[{"C1":"v1"}]}`),
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	// A provider honoring the contract returns the same structure when no
	// semantic change is requested.
	echo := ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		raw, err := json.Marshal(current)
		return string(raw), err
	})

	g := New(echo)
	got, err := g.Refine(context.Background(), current, nil, "")
	require.NoError(t, err)

	if diff := cmp.Diff(current, got, cmpopts.IgnoreFields(schema.AppSchema{}, "CreatedAt")); diff != "" {
		t.Errorf("refine changed structure (-want +got):\n%s", diff)
	}
	if !got.CreatedAt.After(current.CreatedAt) {
		t.Error("refine did not refresh createdAt")
	}
}

func TestRefine_PromptCarriesSchemaAndHistory(t *testing.T) {
	var gotUser string
	client := ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		gotUser = userPrompt
		return `{"type":"comparison","title":"t","description":"d","sources":[],"data":{}}`, nil
	})

	current := &schema.AppSchema{Type: schema.TypeComparison, Title: "Frameworks", Data: json.RawMessage(`{}`)}
	history := []schema.Message{
		{ID: "1", Role: schema.RoleUser, Content: "compare them"},
		{ID: "2", Role: schema.RoleAssistant, Content: "done"},
	}

	g := New(client)
	_, err := g.Refine(context.Background(), current, history, "add a price column")
	require.NoError(t, err)

	for _, want := range []string{"Frameworks", "compare them", `"add a price column"`} {
		if !strings.Contains(gotUser, want) {
			t.Errorf("refine prompt missing %q", want)
		}
	}
}

func TestRefine_ErrorTaxonomyMatchesCreate(t *testing.T) {
	current := &schema.AppSchema{Type: schema.TypeSummary, Data: json.RawMessage(`{}`)}

	g := New(stubClient("", nil))
	if _, err := g.Refine(context.Background(), current, nil, "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}

	g = New(stubClient("not json", nil))
	if _, err := g.Refine(context.Background(), current, nil, "x"); !errors.Is(err, ErrMalformedOutput) {
		t.Errorf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestCreate_UnknownTypePassedThrough(t *testing.T) {
	g := New(stubClient(`{"type":"dashboard","title":"t","description":"d","sources":[],"data":{}}`, nil))
	s, err := g.Create(context.Background(), nil, "make a dashboard")
	require.NoError(t, err)
	// Unrecognized tags are not an error here; the renderer treats them
	// as unsupported.
	require.Equal(t, schema.AppType("dashboard"), s.Type)
	require.False(t, s.Type.Known())
}
