// Package schema defines the typed contract between the generation boundary
// and the renderer: the tagged-union app schema plus the supporting value
// objects (context items, chat messages).
//
// The `data` payload is kept as raw JSON on purpose. The boundary guarantees
// JSON-parseability only; each consumer decodes the payload it expects and
// handles shape mismatches itself.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AppType is the discriminator tag of the app schema union.
type AppType string

const (
	TypeComparison AppType = "comparison"
	TypeTimeline   AppType = "timeline"
	TypeKanban     AppType = "kanban"
	TypeSummary    AppType = "summary"
	TypeQuiz       AppType = "quiz"
	TypeUndefined  AppType = "undefined"
)

// Known reports whether t is one of the five generated app types.
// TypeUndefined and anything else the model invents are not known; the
// renderer shows those as unsupported instead of failing.
func (t AppType) Known() bool {
	switch t {
	case TypeComparison, TypeTimeline, TypeKanban, TypeSummary, TypeQuiz:
		return true
	}
	return false
}

// AppSchema describes one ephemeral app. It is replaced wholesale on every
// create/refine cycle; nothing mutates an AppSchema in place.
type AppSchema struct {
	Type        AppType         `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Sources     []string        `json:"sources"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Parse decodes raw provider output into an AppSchema. The only requirement
// enforced here is that raw is a single valid JSON object; payload shape
// checking is deferred to the consumers.
func Parse(raw []byte) (*AppSchema, error) {
	var s AppSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode app schema: %w", err)
	}
	if s.Type == "" {
		s.Type = TypeUndefined
	}
	return &s, nil
}

// Clone returns a deep copy of the schema.
func (s *AppSchema) Clone() *AppSchema {
	out := *s
	out.Sources = append([]string(nil), s.Sources...)
	out.Data = append(json.RawMessage(nil), s.Data...)
	return &out
}

// WithData returns a copy of the schema carrying a freshly marshaled payload.
// This is the single replace-whole-schema path used by local mutations such
// as the kanban add-item action.
func (s *AppSchema) WithData(payload any) (*AppSchema, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	out := s.Clone()
	out.Data = raw
	return out, nil
}

// =============================================================================
// TYPE-SPECIFIC PAYLOADS
// =============================================================================

// ComparisonData is the payload for TypeComparison.
type ComparisonData struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// Cell looks up a row value for a column label. The model does not always
// reproduce column labels exactly, so the lookup falls back to a
// case-insensitive match. Missing cells report ok=false; the renderer shows
// a placeholder.
func (d *ComparisonData) Cell(row map[string]string, column string) (string, bool) {
	if v, ok := row[column]; ok {
		return v, true
	}
	lower := strings.ToLower(column)
	if v, ok := row[lower]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return "", false
}

// TimelineItem is one entry on a timeline. Date is a free-text period or an
// ISO date; entries are displayed in sequence order, never re-sorted.
type TimelineItem struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SourceID    string `json:"sourceId,omitempty"`
}

// TimelineData is the payload for TypeTimeline.
type TimelineData struct {
	Items []TimelineItem `json:"items"`
}

// KanbanItem is one card on a kanban board.
type KanbanItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// KanbanColumn is one column of a kanban board.
type KanbanColumn struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Items []KanbanItem `json:"items"`
}

// KanbanData is the payload for TypeKanban. It is the only payload with an
// in-session mutation (AddItem), which is copy-on-write.
type KanbanData struct {
	Columns []KanbanColumn `json:"columns"`
}

// AddItem returns a new board with item appended to the column with the
// given id. Untouched columns keep their identity: same struct values, same
// item slices. Unknown column ids are an error.
func (d KanbanData) AddItem(columnID string, item KanbanItem) (KanbanData, error) {
	target := -1
	for i, col := range d.Columns {
		if col.ID == columnID {
			target = i
			break
		}
	}
	if target < 0 {
		return KanbanData{}, fmt.Errorf("kanban column %q not found", columnID)
	}

	columns := make([]KanbanColumn, len(d.Columns))
	copy(columns, d.Columns)

	items := make([]KanbanItem, len(columns[target].Items), len(columns[target].Items)+1)
	copy(items, columns[target].Items)
	columns[target].Items = append(items, item)

	return KanbanData{Columns: columns}, nil
}

// SummaryData is the payload for TypeSummary.
type SummaryData struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"keyPoints"`
	ActionItems []string `json:"actionItems"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// QuizData is the payload for TypeQuiz.
type QuizData struct {
	Questions []QuizQuestion `json:"questions"`
}

// =============================================================================
// PAYLOAD ACCESSORS
// =============================================================================

// Comparison decodes the payload as ComparisonData.
func (s *AppSchema) Comparison() (*ComparisonData, error) { return decodeData[ComparisonData](s) }

// Timeline decodes the payload as TimelineData.
func (s *AppSchema) Timeline() (*TimelineData, error) { return decodeData[TimelineData](s) }

// Kanban decodes the payload as KanbanData.
func (s *AppSchema) Kanban() (*KanbanData, error) { return decodeData[KanbanData](s) }

// Summary decodes the payload as SummaryData.
func (s *AppSchema) Summary() (*SummaryData, error) { return decodeData[SummaryData](s) }

// Quiz decodes the payload as QuizData.
func (s *AppSchema) Quiz() (*QuizData, error) { return decodeData[QuizData](s) }

func decodeData[T any](s *AppSchema) (*T, error) {
	if len(s.Data) == 0 {
		return nil, fmt.Errorf("app schema has no data payload")
	}
	var out T
	if err := json.Unmarshal(s.Data, &out); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", s.Type, err)
	}
	return &out, nil
}
