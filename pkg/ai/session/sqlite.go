package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/macro"
	"github.com/cloudposse/weave/pkg/ai/types"
)

const (
	// DefaultDirPerms is the default permissions for creating storage directories.
	defaultDirPerms = 0o755
)

// SQLiteStorage stores chat transcripts in SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Ensure SQLiteStorage implements the TranscriptSource interface.
var _ TranscriptSource = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (and migrates) the transcript database at storagePath.
func NewSQLiteStorage(storagePath string) (*SQLiteStorage, error) {
	if storagePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(storagePath), defaultDirPerms); err != nil {
			return nil, errUtils.Build(errUtils.ErrStorageOpen).WithCause(err).WithContext("path", storagePath).Err()
		}
	}

	db, err := sql.Open("sqlite", storagePath)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrStorageOpen).WithCause(err).WithContext("path", storagePath).Err()
	}

	db.SetMaxOpenConns(1) // SQLite works best with single connection

	pragmas := []string{
		"PRAGMA foreign_keys = ON",    // Required for cascade deletes
		"PRAGMA journal_mode = WAL",   // Non-blocking readers while the pipeline appends
		"PRAGMA synchronous = NORMAL", // Reduce fsyncs while maintaining crash safety
		"PRAGMA busy_timeout = 5000",  // Wait up to 5s if database is locked
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errUtils.Build(errUtils.ErrStorageOpen).WithCause(err).WithContext("pragma", pragma).Err()
		}
	}

	storage := &SQLiteStorage{
		db:   db,
		path: storagePath,
		now:  time.Now,
	}

	if err := storage.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// Migrate creates or updates the database schema.
func (s *SQLiteStorage) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			character_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats(updated_at)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id, id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return errUtils.Build(errUtils.ErrStorageMigration).WithCause(err).Err()
		}
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// AppendMessage appends a message to a chat transcript, creating the chat if needed.
func (s *SQLiteStorage) AppendMessage(ctx context.Context, chatID, characterName string, message types.Message) (*Entry, error) {
	if chatID == "" {
		return nil, errUtils.ErrChatIDEmpty
	}

	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, queryFailed(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chats (id, character_name, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		chatID, characterName, now, now,
	)
	if err != nil {
		return nil, queryFailed(err, "upsert chat")
	}

	entry := &Entry{
		ChatID:    chatID,
		Role:      message.Role,
		Name:      message.Name,
		Content:   macro.Text(message),
		CreatedAt: now,
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (chat_id, role, name, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ChatID, string(entry.Role), entry.Name, entry.Content, entry.CreatedAt,
	)
	if err != nil {
		return nil, queryFailed(err, "insert message")
	}

	if entry.ID, err = result.LastInsertId(); err != nil {
		return nil, queryFailed(err, "last insert id")
	}

	if err := tx.Commit(); err != nil {
		return nil, queryFailed(err, "commit")
	}
	return entry, nil
}

// GetChat returns a chat by id.
func (s *SQLiteStorage) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	query := `SELECT c.id, c.character_name, c.created_at, c.updated_at, COUNT(m.id)
	          FROM chats c LEFT JOIN messages m ON c.id = m.chat_id
	          WHERE c.id = ? GROUP BY c.id`

	var chat Chat
	err := s.db.QueryRowContext(ctx, query, chatID).Scan(
		&chat.ID,
		&chat.CharacterName,
		&chat.CreatedAt,
		&chat.UpdatedAt,
		&chat.MessageCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errUtils.ErrChatNotFound, chatID)
	}
	if err != nil {
		return nil, queryFailed(err, "get chat")
	}
	return &chat, nil
}

// ListChats returns chats ordered by most recent activity.
func (s *SQLiteStorage) ListChats(ctx context.Context, limit int) ([]*Chat, error) {
	query := `SELECT c.id, c.character_name, c.created_at, c.updated_at, COUNT(m.id)
	          FROM chats c LEFT JOIN messages m ON c.id = m.chat_id
	          GROUP BY c.id
	          ORDER BY c.updated_at DESC, c.id
	          LIMIT ?`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, queryFailed(err, "list chats")
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.CharacterName, &chat.CreatedAt, &chat.UpdatedAt, &chat.MessageCount); err != nil {
			return nil, queryFailed(err, "scan chat")
		}
		chats = append(chats, &chat)
	}

	if err := rows.Err(); err != nil {
		return nil, queryFailed(err, "iterate chats")
	}
	return chats, nil
}

// Entries returns the stored messages of a chat in insertion order.
func (s *SQLiteStorage) Entries(ctx context.Context, chatID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, role, name, content, created_at FROM messages WHERE chat_id = ? ORDER BY id ASC`,
		chatID,
	)
	if err != nil {
		return nil, queryFailed(err, "get messages")
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var role string
		if err := rows.Scan(&entry.ID, &entry.ChatID, &role, &entry.Name, &entry.Content, &entry.CreatedAt); err != nil {
			return nil, queryFailed(err, "scan message")
		}
		entry.Role = types.Role(role)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, queryFailed(err, "iterate messages")
	}
	return entries, nil
}

// Transcript returns the known history of a chat as conversation messages.
// An unknown chat has an empty transcript.
func (s *SQLiteStorage) Transcript(ctx context.Context, chatID string) ([]types.Message, error) {
	entries, err := s.Entries(ctx, chatID)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrTranscriptFailed).WithCause(err).WithContext("chat", chatID).Err()
	}

	messages := make([]types.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, e.Message())
	}
	return messages, nil
}

// DeleteChat deletes a chat and its messages.
func (s *SQLiteStorage) DeleteChat(ctx context.Context, chatID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	if err != nil {
		return queryFailed(err, "delete chat")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return queryFailed(err, "rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", errUtils.ErrChatNotFound, chatID)
	}
	return nil
}

// DeleteChatsBefore deletes every chat whose last activity is older than cutoff and
// returns how many were removed.
func (s *SQLiteStorage) DeleteChatsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, queryFailed(err, "prune chats")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, queryFailed(err, "rows affected")
	}
	return int(rows), nil
}

func queryFailed(err error, op string) error {
	return errUtils.Build(errUtils.ErrStorageQuery).WithCause(err).WithContext("op", op).Err()
}
