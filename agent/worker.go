package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"outfitter/model"
	"outfitter/notify"
	"outfitter/storage"
)

const (
	// DefaultPollInterval is how long the worker idles between empty polls.
	DefaultPollInterval = 5 * time.Second

	// DefaultErrorBackoff is the pause after a claim failure, giving a
	// briefly broken store time to recover before the next attempt.
	DefaultErrorBackoff = 30 * time.Second
)

// Worker polls the store for pending messages and processes them one at a
// time. One bad message never takes the loop down: processing failures mark
// the message failed, send the guest an apology, and polling continues.
type Worker struct {
	store    *storage.MessageStore
	orch     *Orchestrator
	notifier notify.Notifier
	logger   *log.Logger

	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// NewWorker builds a worker around an orchestrator. notifier should be the
// same dispatcher the orchestrator delivers replies through; it carries the
// apologetic reply when processing fails.
func NewWorker(store *storage.MessageStore, orch *Orchestrator, notifier notify.Notifier, logger *log.Logger) *Worker {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Worker{
		store:        store,
		orch:         orch,
		notifier:     notifier,
		logger:       logger,
		PollInterval: DefaultPollInterval,
		ErrorBackoff: DefaultErrorBackoff,
	}
}

// Run polls until ctx is canceled. A processed message triggers an immediate
// next poll so bursts drain quickly; an idle poll waits PollInterval.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Printf("[Worker] Started, polling every %v", w.pollInterval())

	for {
		handled, err := w.ProcessNext(ctx)
		if ctx.Err() != nil {
			w.logger.Printf("[Worker] Stopping: %v", ctx.Err())
			return nil
		}

		wait := w.pollInterval()
		switch {
		case err != nil:
			w.logger.Printf("[Worker] %v", err)
			wait = w.errorBackoff()
		case handled:
			wait = 0
		}

		if wait > 0 {
			if !sleepCtx(ctx, wait) {
				w.logger.Printf("[Worker] Stopping: %v", ctx.Err())
				return nil
			}
		}
	}
}

// ProcessNext claims and processes at most one message. The bool reports
// whether a message was handled, successfully or not; the error covers claim
// failures only, since processing failures are absorbed into the message's
// failed status.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	msg, err := w.store.ClaimNextPending(ctx)
	if errors.Is(err, storage.ErrNoPending) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim failed: %w", err)
	}

	w.logger.Printf("[Worker] Processing message %s from %s", msg.ID, msg.ConversationKey)

	if procErr := w.process(ctx, msg); procErr != nil {
		if ctx.Err() != nil {
			// Shutdown mid-message: leave it processing so an operator
			// can reprocess it rather than burying it as failed.
			w.logger.Printf("[Worker] Interrupted while processing %s, leaving it claimed", msg.ID)
			return true, nil
		}
		w.fail(ctx, msg, procErr)
		return true, nil
	}

	w.logger.Printf("[Worker] Message %s done", msg.ID)
	return true, nil
}

// process runs the orchestrator, converting panics into errors.
func (w *Worker) process(ctx context.Context, msg *model.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing: %v", r)
		}
	}()
	return w.orch.Process(ctx, msg)
}

// fail marks the message failed with the raw error for the operator and
// sends the guest the matching apologetic reply.
func (w *Worker) fail(ctx context.Context, msg *model.Message, procErr error) {
	w.logger.Printf("[Worker] Message %s failed: %v", msg.ID, procErr)

	if err := w.store.MarkFailed(ctx, msg.ID, procErr.Error()); err != nil {
		w.logger.Printf("[Worker] Could not mark %s failed: %v", msg.ID, err)
	}

	if msg.ConversationKey == "" {
		return
	}
	if err := w.notifier.Send(ctx, msg.ConversationKey, FailureReply(procErr)); err != nil {
		w.logger.Printf("[Worker] Apology delivery to %s failed: %v", msg.ConversationKey, err)
	}
}

func (w *Worker) pollInterval() time.Duration {
	if w.PollInterval > 0 {
		return w.PollInterval
	}
	return DefaultPollInterval
}

func (w *Worker) errorBackoff() time.Duration {
	if w.ErrorBackoff > 0 {
		return w.ErrorBackoff
	}
	return DefaultErrorBackoff
}

// sleepCtx waits for d or ctx cancellation, reporting false when canceled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
