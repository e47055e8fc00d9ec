// Package store persists session state in SQLite so a chat session can be
// resumed: the append-only message log, the source set, and app snapshots.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"gentabs/internal/schema"
)

// Store is a SQLite-backed session store. Safe for concurrent use.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// New opens (or creates) the database at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	tables := []string{
		// Times are unix nanoseconds so recency ordering is exact.
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,

		// seq is the insertion order. Timestamps can tie and message ids
		// are random, so neither can recover append order on its own.
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			related_app_id TEXT,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);`,

		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT,
			content TEXT NOT NULL,
			favicon TEXT,
			captured_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sources_session ON sources(session_id);`,

		`CREATE TABLE IF NOT EXISTS app_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			schema_json TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_session ON app_snapshots(session_id);`,
	}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// TouchSession records that the session exists and was just used. Called at
// startup so LastSession can find it on the next launch.
func (s *Store) TouchSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixNano()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// LastSession returns the id of the most recently used session, or "" when
// the store has none.
func (s *Store) LastSession() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id string
	err := s.db.QueryRow(
		`SELECT id FROM sessions ORDER BY updated_at DESC, id LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last session: %w", err)
	}
	return id, nil
}

// SaveMessage appends a message to the session log. The log is append-only;
// there is no update or delete.
func (s *Store) SaveMessage(sessionID string, msg schema.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO messages (id, session_id, role, content, related_app_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, string(msg.Role), msg.Content, msg.RelatedAppID, msg.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// Messages returns the session's chat log, oldest first.
func (s *Store) Messages(sessionID string) ([]schema.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, role, content, related_app_id, timestamp
		 FROM messages WHERE session_id = ? ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []schema.Message
	for rows.Next() {
		var m schema.Message
		var role string
		var related sql.NullString
		var ts time.Time
		if err := rows.Scan(&m.ID, &role, &m.Content, &related, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = schema.Role(role)
		m.RelatedAppID = related.String
		m.Timestamp = ts
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveSource upserts a context item for the session.
func (s *Store) SaveSource(sessionID string, item schema.ContextItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO sources (id, session_id, title, url, content, favicon, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   url = excluded.url,
		   content = excluded.content,
		   favicon = excluded.favicon,
		   captured_at = excluded.captured_at`,
		item.ID, sessionID, item.Title, item.URL, item.Content, item.Favicon, item.CapturedAt.UTC())
	if err != nil {
		return fmt.Errorf("save source: %w", err)
	}
	return nil
}

// DeleteSource removes a context item.
func (s *Store) DeleteSource(sessionID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(
		`DELETE FROM sources WHERE session_id = ? AND id = ?`,
		sessionID, itemID); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}

// Sources returns the session's context items in capture order.
func (s *Store) Sources(sessionID string) ([]schema.ContextItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, title, url, content, favicon, captured_at
		 FROM sources WHERE session_id = ? ORDER BY captured_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []schema.ContextItem
	for rows.Next() {
		var item schema.ContextItem
		var url, favicon sql.NullString
		var captured time.Time
		if err := rows.Scan(&item.ID, &item.Title, &url, &item.Content, &favicon, &captured); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		item.URL = url.String
		item.Favicon = favicon.String
		item.CapturedAt = captured
		out = append(out, item)
	}
	return out, rows.Err()
}

// SaveSnapshot records an app schema for the session. Snapshots accumulate;
// LatestSnapshot returns the newest one.
func (s *Store) SaveSnapshot(sessionID string, app *schema.AppSchema) error {
	raw, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(
		`INSERT INTO app_snapshots (session_id, schema_json, created_at) VALUES (?, ?, ?)`,
		sessionID, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent app schema for the session, or nil
// when none was saved.
func (s *Store) LatestSnapshot(sessionID string) (*schema.AppSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var raw string
	err := s.db.QueryRow(
		`SELECT schema_json FROM app_snapshots WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	app, err := schema.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return app, nil
}
