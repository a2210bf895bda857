package storage

import (
	"context"
	"time"
)

type ConversationMatch struct {
	ConversationKey string
	MessageID       string
	Direction       string
	Content         string
	Preview         string
	Status          string
	Timestamp       time.Time
}

type SearchIndex struct {
	store *MessageStore
}

func NewSearchIndex(store *MessageStore) *SearchIndex {
	return &SearchIndex{store: store}
}

// SearchAllConversations finds messages across every conversation whose
// content contains the query substring, newest first.
func (si *SearchIndex) SearchAllConversations(ctx context.Context, query string, limit int) ([]ConversationMatch, error) {
	if query == "" {
		return []ConversationMatch{}, nil
	}

	messages, err := si.store.SearchMessages(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	var matches []ConversationMatch
	for _, msg := range messages {
		preview := msg.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}

		matches = append(matches, ConversationMatch{
			ConversationKey: msg.ConversationKey,
			MessageID:       msg.ID,
			Direction:       string(msg.Direction),
			Content:         msg.Content,
			Preview:         preview,
			Status:          string(msg.Status),
			Timestamp:       msg.CreatedAt,
		})
	}

	return matches, nil
}
