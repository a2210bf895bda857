package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"outfitter/config"
	"outfitter/model"
)

// ErrNoPending is returned by ClaimNextPending when no claimable message exists.
var ErrNoPending = errors.New("no pending messages")

// MessageStore persists conversation messages and help requests in sqlite.
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore opens (or creates) the message database under dataDir.
func NewMessageStore(dataDir string) (*MessageStore, error) {
	return OpenMessageStore(filepath.Join(dataDir, "messages.db"))
}

// OpenMessageStore opens the message database at an explicit path.
func OpenMessageStore(dbPath string) (*MessageStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MessageStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (ms *MessageStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		parent_id TEXT,
		conversation_key TEXT,
		direction TEXT NOT NULL,
		content TEXT,
		tool_invocations TEXT,
		tool_result_for TEXT,
		status TEXT NOT NULL,
		error_message TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_key, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_id);
	CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(status);

	CREATE TABLE IF NOT EXISTS help_requests (
		id TEXT PRIMARY KEY,
		conversation_key TEXT,
		message_id TEXT,
		reason TEXT NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_help_requests_resolved ON help_requests(resolved);
	`

	_, err := ms.db.Exec(schema)
	if err != nil {
		return err
	}

	if err := ms.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	return nil
}

// migrateSchema adds columns that older databases are missing
func (ms *MessageStore) migrateSchema() error {
	hasErrorMessage, err := ms.columnExists("messages", "error_message")
	if err != nil {
		return fmt.Errorf("failed to check for error_message column: %w", err)
	}

	switch {
	case !hasErrorMessage:
		_, err := ms.db.Exec(`ALTER TABLE messages ADD COLUMN error_message TEXT DEFAULT ''`)
		if err != nil {
			return fmt.Errorf("failed to add error_message column: %w", err)
		}
	}

	hasToolResultFor, err := ms.columnExists("messages", "tool_result_for")
	if err != nil {
		return fmt.Errorf("failed to check for tool_result_for column: %w", err)
	}

	switch {
	case !hasToolResultFor:
		_, err := ms.db.Exec(`ALTER TABLE messages ADD COLUMN tool_result_for TEXT DEFAULT ''`)
		if err != nil {
			return fmt.Errorf("failed to add tool_result_for column: %w", err)
		}
	}

	hasResolved, err := ms.columnExists("help_requests", "resolved")
	if err != nil {
		return fmt.Errorf("failed to check for resolved column: %w", err)
	}

	switch {
	case !hasResolved:
		_, err := ms.db.Exec(`ALTER TABLE help_requests ADD COLUMN resolved INTEGER NOT NULL DEFAULT 0`)
		if err != nil {
			return fmt.Errorf("failed to add resolved column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (ms *MessageStore) columnExists(tableName, columnName string) (bool, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := ms.db.Query(query)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var dataType string
		var notNull int
		var defaultValue interface{}
		var pk int

		err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk)
		if err != nil {
			return false, err
		}

		switch {
		case name == columnName:
			return true, nil
		}
	}

	return false, rows.Err()
}

const messageColumns = `id, parent_id, conversation_key, direction, content, tool_invocations, tool_result_for, status, error_message, created_at`

// Insert stores a message, filling in ID, CreatedAt, and Status when unset.
func (ms *MessageStore) Insert(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Status == "" {
		msg.Status = model.StatusPending
	}

	invocations, err := encodeInvocations(msg.ToolInvocations)
	if err != nil {
		return fmt.Errorf("failed to encode tool invocations: %w", err)
	}

	query := `
	INSERT INTO messages (` + messageColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = ms.db.ExecContext(ctx, query,
		msg.ID,
		msg.ParentID,
		msg.ConversationKey,
		msg.Direction,
		msg.Content,
		invocations,
		msg.ToolResultFor,
		msg.Status,
		msg.ErrorMessage,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// GetMessage loads a message by id. Returns (nil, nil) when absent.
func (ms *MessageStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`

	msg, err := scanMessage(ms.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// GetThread returns the message with the given id together with its direct
// children, oldest first.
func (ms *MessageStore) GetThread(ctx context.Context, id string) ([]model.Message, error) {
	query := `
	SELECT ` + messageColumns + `
	FROM messages
	WHERE id = ? OR parent_id = ?
	ORDER BY created_at ASC, id ASC
	`

	return ms.queryMessages(ctx, query, id, id)
}

// GetChildren returns the direct children of a message, oldest first.
func (ms *MessageStore) GetChildren(ctx context.Context, id string) ([]model.Message, error) {
	query := `
	SELECT ` + messageColumns + `
	FROM messages
	WHERE parent_id = ?
	ORDER BY created_at ASC, id ASC
	`

	return ms.queryMessages(ctx, query, id)
}

// GetConversationWindow returns up to limit most recent messages sharing a
// conversation key, newest first.
func (ms *MessageStore) GetConversationWindow(ctx context.Context, key string, limit int) ([]model.Message, error) {
	query := `
	SELECT ` + messageColumns + `
	FROM messages
	WHERE conversation_key = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ?
	`

	return ms.queryMessages(ctx, query, key, limit)
}

// ClaimNextPending atomically claims the oldest pending incoming message,
// moving it to processing. The UPDATE is guarded on the pending status so two
// workers can never claim the same message; losing the race moves on to the
// next candidate. Returns ErrNoPending when nothing is claimable.
func (ms *MessageStore) ClaimNextPending(ctx context.Context) (*model.Message, error) {
	selectQuery := `
	SELECT ` + messageColumns + `
	FROM messages
	WHERE status = ? AND direction = ?
	ORDER BY created_at ASC, id ASC
	LIMIT 1
	`

	for {
		msg, err := scanMessage(ms.db.QueryRowContext(ctx, selectQuery, model.StatusPending, model.DirectionIncoming))
		if err == sql.ErrNoRows {
			return nil, ErrNoPending
		}
		if err != nil {
			return nil, fmt.Errorf("failed to select pending message: %w", err)
		}

		result, err := ms.db.ExecContext(ctx,
			`UPDATE messages SET status = ? WHERE id = ? AND status = ?`,
			model.StatusProcessing, msg.ID, model.StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to claim message: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check affected rows: %w", err)
		}

		if rows == 1 {
			msg.Status = model.StatusProcessing
			return msg, nil
		}
		// Someone else claimed it first, try the next candidate.
	}
}

// SetStatus transitions a message's status. Terminal statuses are never
// overwritten; attempting to is an error.
func (ms *MessageStore) SetStatus(ctx context.Context, id string, status model.Status) error {
	result, err := ms.db.ExecContext(ctx,
		`UPDATE messages SET status = ? WHERE id = ? AND status NOT IN (?, ?)`,
		status, id, model.StatusCompleted, model.StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("message %s not found or already terminal", id)
	}

	return nil
}

// MarkFailed moves a message to failed and records the error text.
func (ms *MessageStore) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	result, err := ms.db.ExecContext(ctx,
		`UPDATE messages SET status = ?, error_message = ? WHERE id = ? AND status NOT IN (?, ?)`,
		model.StatusFailed, errorMessage, id, model.StatusCompleted, model.StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("message %s not found or already terminal", id)
	}

	return nil
}

// ListFailed returns up to limit failed messages, newest first.
func (ms *MessageStore) ListFailed(ctx context.Context, limit int) ([]model.Message, error) {
	query := `
	SELECT ` + messageColumns + `
	FROM messages
	WHERE status = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ?
	`

	return ms.queryMessages(ctx, query, model.StatusFailed, limit)
}

// SearchMessages returns up to limit messages whose content contains the
// query substring, newest first.
func (ms *MessageStore) SearchMessages(ctx context.Context, query string, limit int) ([]model.Message, error) {
	sqlQuery := `
	SELECT ` + messageColumns + `
	FROM messages
	WHERE content LIKE ?
	ORDER BY created_at DESC, id DESC
	LIMIT ?
	`

	return ms.queryMessages(ctx, sqlQuery, "%"+query+"%", limit)
}

// ConversationSummary is a per-conversation rollup for the console list view.
type ConversationSummary struct {
	Key          string
	MessageCount int
	FailedCount  int
	LastContent  string
	LastActivity time.Time
}

// ListConversations returns one summary per conversation key, most recently
// active first.
func (ms *MessageStore) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	query := `
	SELECT conversation_key, content, status, created_at
	FROM messages
	WHERE conversation_key != ''
	ORDER BY created_at ASC, id ASC
	`

	rows, err := ms.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byKey := make(map[string]*ConversationSummary)
	for rows.Next() {
		var key, content string
		var status model.Status
		var createdAt time.Time

		if err := rows.Scan(&key, &content, &status, &createdAt); err != nil {
			continue
		}

		summary, ok := byKey[key]
		if !ok {
			summary = &ConversationSummary{Key: key}
			byKey[key] = summary
		}

		summary.MessageCount++
		if status == model.StatusFailed {
			summary.FailedCount++
		}
		if content != "" {
			summary.LastContent = content
		}
		summary.LastActivity = createdAt
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(byKey))
	for _, summary := range byKey {
		summaries = append(summaries, *summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})

	return summaries, nil
}

// CountByStatus returns the number of messages in each status.
func (ms *MessageStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := ms.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM messages GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status model.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			continue
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

func (ms *MessageStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]model.Message, error) {
	rows, err := ms.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Storage] Skipping unreadable message row: %v", err)
			}
			continue
		}
		messages = append(messages, *msg)
	}

	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var msg model.Message
	var invocations string

	err := row.Scan(
		&msg.ID,
		&msg.ParentID,
		&msg.ConversationKey,
		&msg.Direction,
		&msg.Content,
		&invocations,
		&msg.ToolResultFor,
		&msg.Status,
		&msg.ErrorMessage,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.ToolInvocations, err = decodeInvocations(invocations)
	if err != nil {
		return nil, fmt.Errorf("message %s has invalid tool_invocations: %w", msg.ID, err)
	}

	return &msg, nil
}

func encodeInvocations(invocations []model.ToolInvocation) (string, error) {
	if len(invocations) == 0 {
		return "", nil
	}
	data, err := json.Marshal(invocations)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeInvocations(raw string) ([]model.ToolInvocation, error) {
	if raw == "" {
		return nil, nil
	}
	var invocations []model.ToolInvocation
	if err := json.Unmarshal([]byte(raw), &invocations); err != nil {
		return nil, err
	}
	return invocations, nil
}

func (ms *MessageStore) Close() error {
	if ms.db != nil {
		return ms.db.Close()
	}
	return nil
}
