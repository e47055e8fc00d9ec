package workspace

import (
	"encoding/json"
	"time"

	"gentabs/internal/schema"
)

// Fixture is a bundled demo workspace: a set of sources plus a pre-built app
// matching what generation would produce from them.
type Fixture struct {
	Name    string
	Prompt  string
	Sources []schema.ContextItem
	App     *schema.AppSchema
}

// Fixtures returns the bundled demos.
func Fixtures() []Fixture {
	return []Fixture{researchFixture(), shoppingFixture()}
}

// FixtureByName looks up a demo by name; ok is false when none matches.
func FixtureByName(name string) (Fixture, bool) {
	for _, f := range Fixtures() {
		if f.Name == name {
			return f, true
		}
	}
	return Fixture{}, false
}

// Load replaces the workspace sources and active app with the fixture's.
func (w *Workspace) Load(f Fixture) {
	w.mu.Lock()
	w.sources = append([]schema.ContextItem(nil), f.Sources...)
	w.mu.Unlock()
	w.SetApp(f.App.Clone())
	w.AppendAssistant("Loaded the \""+f.Name+"\" demo. Ask me to refine it or build something else.", "")
}

func researchFixture() Fixture {
	captured := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	data, _ := json.Marshal(schema.ComparisonData{
		Columns: []string{"Framework", "Language", "Rendering", "Learning Curve"},
		Rows: []map[string]string{
			{"Framework": "React", "Language": "JavaScript/TypeScript", "Rendering": "Virtual DOM", "Learning Curve": "Moderate"},
			{"Framework": "Svelte", "Language": "JavaScript/TypeScript", "Rendering": "Compiled, no runtime diffing", "Learning Curve": "Gentle"},
			{"Framework": "HTMX", "Language": "HTML attributes", "Rendering": "Server-driven partials", "Learning Curve": "Minimal"},
		},
	})
	return Fixture{
		Name:   "framework-research",
		Prompt: "Compare these frontend frameworks for our next project",
		Sources: []schema.ContextItem{
			{
				ID:         "demo-react",
				Title:      "React - The library for web and native user interfaces",
				URL:        "https://react.dev",
				Content:    "React lets you build user interfaces out of individual pieces called components. It uses a virtual DOM and one-way data flow.",
				CapturedAt: captured,
			},
			{
				ID:         "demo-svelte",
				Title:      "Svelte - Cybernetically enhanced web apps",
				URL:        "https://svelte.dev",
				Content:    "Svelte shifts work into a compile step. Instead of diffing a virtual DOM it writes code that surgically updates the DOM when state changes.",
				CapturedAt: captured,
			},
			{
				ID:         "demo-htmx",
				Title:      "htmx - high power tools for HTML",
				URL:        "https://htmx.org",
				Content:    "htmx gives you access to AJAX, CSS transitions and WebSockets directly in HTML, so you can build modern interfaces with the simplicity of hypertext.",
				CapturedAt: captured,
			},
		},
		App: &schema.AppSchema{
			Type:        schema.TypeComparison,
			Title:       "Frontend Framework Comparison",
			Description: "How React, Svelte, and HTMX stack up for the next project",
			Sources:     []string{"demo-react", "demo-svelte", "demo-htmx"},
			Data:        data,
			CreatedAt:   captured,
		},
	}
}

func shoppingFixture() Fixture {
	captured := time.Date(2025, 3, 12, 18, 15, 0, 0, time.UTC)
	data, _ := json.Marshal(schema.ComparisonData{
		Columns: []string{"Model", "Price", "Battery", "Camera"},
		Rows: []map[string]string{
			{"Model": "Pixel 9", "Price": "$799", "Battery": "4700 mAh", "Camera": "50 MP dual"},
			{"Model": "iPhone 16", "Price": "$829", "Battery": "3561 mAh", "Camera": "48 MP dual"},
			{"Model": "Galaxy S25", "Price": "$799", "Battery": "4000 mAh", "Camera": "50 MP triple"},
		},
	})
	return Fixture{
		Name:   "phone-shopping",
		Prompt: "Which phone should I buy? Compare the ones I looked at",
		Sources: []schema.ContextItem{
			{
				ID:         "demo-pixel",
				Title:      "Google Pixel 9 review",
				URL:        "https://example.com/reviews/pixel-9",
				Content:    "The Pixel 9 pairs a 4700 mAh battery with a 50 MP dual camera system at $799. Seven years of OS updates.",
				CapturedAt: captured,
			},
			{
				ID:         "demo-iphone",
				Title:      "iPhone 16 review",
				URL:        "https://example.com/reviews/iphone-16",
				Content:    "The iPhone 16 starts at $829 with a 48 MP dual camera and a 3561 mAh battery. Strong ecosystem integration.",
				CapturedAt: captured,
			},
			{
				ID:         "demo-galaxy",
				Title:      "Samsung Galaxy S25 review",
				URL:        "https://example.com/reviews/galaxy-s25",
				Content:    "The Galaxy S25 offers a 50 MP triple camera, 4000 mAh battery, and aggressive pricing at $799.",
				CapturedAt: captured,
			},
		},
		App: &schema.AppSchema{
			Type:        schema.TypeComparison,
			Title:       "Phone Shopping Shortlist",
			Description: "Side-by-side of the three phones under consideration",
			Sources:     []string{"demo-pixel", "demo-iphone", "demo-galaxy"},
			Data:        data,
			CreatedAt:   captured,
		},
	}
}
