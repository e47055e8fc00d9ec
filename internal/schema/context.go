package schema

import "time"

// ContextItem is one unit of source material fed into generation, typically
// the extracted text of a browser tab or a local document. Items are
// immutable once added; the only lifecycle operations are add and remove.
type ContextItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Content    string    `json:"content"`
	Favicon    string    `json:"favicon,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in the append-only chat log. Messages are never
// edited or deleted.
type Message struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	RelatedAppID string    `json:"relatedAppId,omitempty"`
}
