// Package storage persists chat sessions to a local sqlite database so a
// conversation can be resumed later, listed, or searched by content.
package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tandem/model"
)

const dbFileName = "sessions.db"

// Session is a stored conversation with its identifying metadata.
type Session struct {
	ID           string
	Name         string
	Provider     string
	Model        string
	SystemPrompt string
	Messages     []model.Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionMetadata summarizes a stored session for listing.
type SessionMetadata struct {
	ID           string
	Name         string
	Provider     string
	Model        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MessageMatch is one search hit: which session, which message, and a short
// preview of the matching content.
type MessageMatch struct {
	SessionID   string
	SessionName string
	Role        string
	Preview     string
	Timestamp   time.Time
}

// SessionStore mediates all session persistence.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens (creating if needed) the session database under
// dataDir.
func NewSessionStore(dataDir string) (*SessionStore, error) {
	dbPath := filepath.Join(dataDir, dbFileName)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	store := &SessionStore{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SessionStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		provider      TEXT NOT NULL,
		model         TEXT NOT NULL,
		system_prompt TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		idx        INTEGER NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (session_id, idx)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize session schema: %w", err)
	}
	return nil
}

// Save writes the session and all of its messages, assigning an ID on first
// save. Messages are replaced wholesale; the session row is upserted.
func (s *SessionStore) Save(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
		sess.CreatedAt = time.Now()
	}
	sess.UpdatedAt = time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, name, provider, model, system_prompt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			provider = excluded.provider,
			model = excluded.model,
			system_prompt = excluded.system_prompt,
			updated_at = excluded.updated_at`,
		sess.ID, sess.Name, sess.Provider, sess.Model, sess.SystemPrompt,
		sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("failed to clear session messages: %w", err)
	}

	for i, msg := range sess.Messages {
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = sess.UpdatedAt
		}
		_, err := tx.Exec(`
			INSERT INTO messages (session_id, idx, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			sess.ID, i, msg.Role, msg.Content, ts)
		if err != nil {
			return fmt.Errorf("failed to save message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load returns the session with the given ID, including all messages in
// order.
func (s *SessionStore) Load(id string) (*Session, error) {
	sess := &Session{}
	err := s.db.QueryRow(`
		SELECT id, name, provider, model, system_prompt, created_at, updated_at
		FROM sessions WHERE id = ?`, id).Scan(
		&sess.ID, &sess.Name, &sess.Provider, &sess.Model,
		&sess.SystemPrompt, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	rows, err := s.db.Query(`
		SELECT role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session messages: %w", err)
	}

	return sess, nil
}

// List returns metadata for all sessions, most recently updated first.
func (s *SessionStore) List() ([]SessionMetadata, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.name, s.provider, s.model, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var list []SessionMetadata
	for rows.Next() {
		var md SessionMetadata
		err := rows.Scan(&md.ID, &md.Name, &md.Provider, &md.Model,
			&md.CreatedAt, &md.UpdatedAt, &md.MessageCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session metadata: %w", err)
		}
		list = append(list, md)
	}
	return list, rows.Err()
}

// Search finds messages whose content contains the query, case-insensitive.
// System messages are excluded; only user and assistant turns are useful
// search targets.
func (s *SessionStore) Search(query string) ([]MessageMatch, error) {
	rows, err := s.db.Query(`
		SELECT m.session_id, s.name, m.role, m.content, m.created_at
		FROM messages m JOIN sessions s ON s.id = m.session_id
		WHERE m.role != 'system' AND m.content LIKE '%' || ? || '%'
		ORDER BY m.created_at DESC`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	var matches []MessageMatch
	for rows.Next() {
		var m MessageMatch
		var content string
		err := rows.Scan(&m.SessionID, &m.SessionName, &m.Role, &content, &m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search match: %w", err)
		}
		m.Preview = preview(content, 100)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Delete removes a session and its messages.
func (s *SessionStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	// Portable cleanup: foreign keys may be off by default.
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// preview truncates on a rune boundary; match content may be multibyte.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
