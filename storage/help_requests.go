package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HelpRequest records a guest's ask for a human operator, raised by the
// help_request tool during processing.
type HelpRequest struct {
	ID              string
	ConversationKey string
	MessageID       string
	Reason          string
	Resolved        bool
	CreatedAt       time.Time
}

// InsertHelpRequest stores a help request, filling in ID and CreatedAt when unset.
func (ms *MessageStore) InsertHelpRequest(ctx context.Context, hr *HelpRequest) error {
	if hr.ID == "" {
		hr.ID = uuid.New().String()
	}
	if hr.CreatedAt.IsZero() {
		hr.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO help_requests (id, conversation_key, message_id, reason, resolved, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := ms.db.ExecContext(ctx, query,
		hr.ID,
		hr.ConversationKey,
		hr.MessageID,
		hr.Reason,
		hr.Resolved,
		hr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert help request: %w", err)
	}

	return nil
}

// ListHelpRequests returns help requests, newest first. Resolved requests are
// included only when includeResolved is set.
func (ms *MessageStore) ListHelpRequests(ctx context.Context, includeResolved bool) ([]HelpRequest, error) {
	query := `
	SELECT id, conversation_key, message_id, reason, resolved, created_at
	FROM help_requests
	WHERE resolved = 0 OR ? = 1
	ORDER BY created_at DESC, id DESC
	`

	include := 0
	if includeResolved {
		include = 1
	}

	rows, err := ms.db.QueryContext(ctx, query, include)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []HelpRequest
	for rows.Next() {
		var hr HelpRequest
		err := rows.Scan(
			&hr.ID,
			&hr.ConversationKey,
			&hr.MessageID,
			&hr.Reason,
			&hr.Resolved,
			&hr.CreatedAt,
		)
		if err != nil {
			continue
		}
		requests = append(requests, hr)
	}

	return requests, rows.Err()
}

// ResolveHelpRequest marks a help request handled.
func (ms *MessageStore) ResolveHelpRequest(ctx context.Context, id string) error {
	result, err := ms.db.ExecContext(ctx, `UPDATE help_requests SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve help request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("help request %s not found", id)
	}

	return nil
}
