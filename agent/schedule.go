package agent

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"outfitter/model"
	"outfitter/storage"
)

const (
	// DefaultMorningUpdateAt is the local time the daily update fires.
	DefaultMorningUpdateAt = "08:00"

	// morningWindow is how far past the scheduled time a tick may still
	// fire. Ticks are coarse, so a strict equality check would skip days.
	morningWindow = 5 * time.Minute

	scheduleTick = time.Minute
)

// morningUpdateRequest is the message the scheduler files on behalf of each
// recipient. The ordinary worker loop processes it like any guest message,
// so the update text comes from the model with live tool access to bookings
// and weather.
const morningUpdateRequest = "Good morning! Please send my daily business update: " +
	"yesterday's bookings and revenue, today's schedule, and anything that needs " +
	"attention over the next seven days."

// Scheduler files the daily morning-update request for each configured
// recipient, once per day, inside a window after the scheduled time.
type Scheduler struct {
	store  *storage.MessageStore
	logger *log.Logger

	// Recipients are the conversation keys the update is addressed to.
	Recipients []string

	// At is the local fire time in "HH:MM" form.
	At string

	mu   sync.Mutex
	sent map[string]string // recipient -> date last filed
}

// NewScheduler builds a scheduler. An empty at falls back to
// DefaultMorningUpdateAt; logger may be nil for stderr.
func NewScheduler(store *storage.MessageStore, recipients []string, at string, logger *log.Logger) *Scheduler {
	if at == "" {
		at = DefaultMorningUpdateAt
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Scheduler{
		store:      store,
		logger:     logger,
		Recipients: recipients,
		At:         at,
		sent:       make(map[string]string),
	}
}

// Run ticks until ctx is canceled. With no recipients configured it returns
// immediately; the worker then runs without morning updates.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.Recipients) == 0 {
		s.logger.Printf("[Schedule] No morning update recipients configured")
		return nil
	}
	s.logger.Printf("[Schedule] Morning updates at %s for %d recipient(s)", s.At, len(s.Recipients))

	ticker := time.NewTicker(scheduleTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// tick files the update request for every recipient that is due and has not
// been served today.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if !s.due(now) {
		return
	}

	date := now.Format("2006-01-02")
	for _, recipient := range s.Recipients {
		if !s.claim(recipient, date) {
			continue
		}

		msg := &model.Message{
			ConversationKey: recipient,
			Direction:       model.DirectionIncoming,
			Content:         morningUpdateRequest,
			Status:          model.StatusPending,
		}
		if err := s.store.Insert(ctx, msg); err != nil {
			s.logger.Printf("[Schedule] Could not file morning update for %s: %v", recipient, err)
			s.release(recipient)
			continue
		}
		s.logger.Printf("[Schedule] Filed morning update request for %s", recipient)
	}
}

// due reports whether now falls inside the fire window for today.
func (s *Scheduler) due(now time.Time) bool {
	at, err := time.Parse("15:04", s.At)
	if err != nil {
		at, _ = time.Parse("15:04", DefaultMorningUpdateAt)
	}

	fire := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	diff := now.Sub(fire)
	return diff >= 0 && diff <= morningWindow
}

// claim reserves today's update for a recipient, returning false when it was
// already filed. Stale entries from earlier days are dropped as a side effect.
func (s *Scheduler) claim(recipient, date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, when := range s.sent {
		if when != date {
			delete(s.sent, key)
		}
	}
	if s.sent[recipient] == date {
		return false
	}
	s.sent[recipient] = date
	return true
}

func (s *Scheduler) release(recipient string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sent, recipient)
}
