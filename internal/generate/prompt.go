package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"gentabs/internal/schema"
)

// DefaultLocale is used when the configuration does not name one.
const DefaultLocale = "English"

// systemDirective constrains the provider to a single JSON object matching
// the app schema union. All user-facing text is produced in the given locale;
// technical terms and proper nouns may stay untranslated.
func systemDirective(locale string) string {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	return fmt.Sprintf(`You are the "App Architect Agent" for GenTabs.
Your goal is to analyze the user's provided context (browser tabs/text) and their intent, then generate a JSON configuration for a specific "Ephemeral App".

**IMPORTANT: The output content MUST be in %s (technical terms can stay in English).**

Output must be a single JSON object with the following structure:
{
  "type": "comparison" | "timeline" | "kanban" | "summary" | "quiz",
  "title": "App Title",
  "description": "Brief description",
  "sources": ["tab-id-1", "tab-id-2"],
  "data": { ... type-specific data structure ... }
}

Supported App Types and their 'data' structures:
1. 'comparison':
   Data format: { "columns": ["Criteria 1", "Criteria 2"], "rows": [{ "Criteria 1": "Value A", "Criteria 2": "Value B" }] }

2. 'timeline':
   Data format: { "items": [{ "date": "YYYY-MM-DD or Period", "title": "Event", "description": "Details" }] }

3. 'kanban':
   Data format: { "columns": [{ "id": "col1", "title": "To Do", "items": [{ "id": "item1", "title": "Task", "description": "Details" }] }] }

4. 'summary':
   Data format: { "summary": "Full text", "keyPoints": ["Point 1", "Point 2"], "actionItems": ["Action 1"] }

5. 'quiz':
   Data format: { "questions": [{ "question": "Text", "options": ["A", "B"], "correctIndex": 0, "explanation": "Why..." }] }

Rules:
- Output JSON ONLY.
- Ensure 'sources' array contains the IDs of the tabs used.
- If the intent is unclear, default to 'summary'.
- ALL USER FACING TEXT MUST BE IN %s.`, locale, locale)
}

// renderContext serializes context items as id-tagged blocks so the model
// can cite source ids back in the schema.
func renderContext(items []schema.ContextItem) string {
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, fmt.Sprintf("[ID: %s] Title: %s\nContent: %s\nURL: %s",
			item.ID, item.Title, item.Content, item.URL))
	}
	return strings.Join(blocks, "\n---\n")
}

// createPrompt builds the user content for a fresh generation.
func createPrompt(items []schema.ContextItem, instruction string) string {
	return fmt.Sprintf(`Context Data:
%s

User Query: %q

Based on the context and user query, generate a JSON configuration for the most suitable ephemeral app.`,
		renderContext(items), instruction)
}

// refinePrompt builds the user content for a refinement turn. The current
// schema and the full chat history are embedded verbatim; the provider is
// expected to return a complete replacement schema.
func refinePrompt(current *schema.AppSchema, history []schema.Message, instruction string) (string, error) {
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return "", fmt.Errorf("serialize current schema: %w", err)
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("serialize chat history: %w", err)
	}
	return fmt.Sprintf(`Current App Config: %s

User Chat History: %s

New Instruction: %q

Update the app configuration JSON based on the new instruction. Keep the same structure.
Modify 'data', 'title', or 'description' as needed.`,
		currentJSON, historyJSON, instruction), nil
}
