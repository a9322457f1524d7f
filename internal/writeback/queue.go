// Package writeback implements a timer-based coalescing write policy:
// rapid successive edits to the same key are held until a quiet interval
// elapses, then committed once with the last value. Billed-mission
// detail edits go through here so rapid typing does not flood storage.
package writeback

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/models"
)

// DefaultQuietInterval is how long a key must stay untouched before its
// pending edit commits.
const DefaultQuietInterval = 500 * time.Millisecond

// CommitFunc persists a coalesced billing edit
type CommitFunc func(ctx context.Context, missionID string, billing models.Billing) error

type pendingEdit struct {
	billing models.Billing
	timer   *time.Timer
}

// Queue coalesces billing edits per mission id
type Queue struct {
	mu      sync.Mutex
	pending map[string]*pendingEdit
	quiet   time.Duration
	commit  CommitFunc
	logger  *zap.Logger
	baseCtx context.Context
	closed  bool
	wg      sync.WaitGroup
}

// NewQueue creates a writeback queue committing through fn after quiet
// milliseconds of per-key inactivity. A non-positive quiet falls back to
// DefaultQuietInterval.
func NewQueue(quiet time.Duration, fn CommitFunc, logger *zap.Logger) *Queue {
	if quiet <= 0 {
		quiet = DefaultQuietInterval
	}
	return &Queue{
		pending: make(map[string]*pendingEdit),
		quiet:   quiet,
		commit:  fn,
		logger:  logger,
		baseCtx: context.Background(),
	}
}

// Submit records an edit for the mission, replacing any pending value and
// restarting the quiet timer. Submitting to a closed queue commits
// immediately.
func (q *Queue) Submit(missionID string, billing models.Billing) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.commitNow(missionID, billing)
		return
	}

	if edit, ok := q.pending[missionID]; ok {
		edit.billing = billing
		edit.timer.Reset(q.quiet)
		q.mu.Unlock()
		return
	}

	edit := &pendingEdit{billing: billing}
	edit.timer = time.AfterFunc(q.quiet, func() {
		q.fire(missionID)
	})
	q.pending[missionID] = edit
	q.mu.Unlock()
}

// Flush commits every pending edit immediately
func (q *Queue) Flush() {
	q.mu.Lock()
	edits := make(map[string]models.Billing, len(q.pending))
	for id, edit := range q.pending {
		edit.timer.Stop()
		edits[id] = edit.billing
		delete(q.pending, id)
	}
	q.mu.Unlock()

	for id, billing := range edits {
		q.commitNow(id, billing)
	}
}

// Pending returns the number of uncommitted edits
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Name implements worker.Worker
func (q *Queue) Name() string {
	return "billing-writeback"
}

// Start implements worker.Worker. Commits keep ctx's values but are
// detached from its cancellation: the shutdown flush runs after the
// server context is canceled and must still reach storage.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	q.baseCtx = context.WithoutCancel(ctx)
	q.mu.Unlock()
	return nil
}

// Stop flushes pending edits and closes the queue
func (q *Queue) Stop() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.Flush()
	q.wg.Wait()
}

func (q *Queue) fire(missionID string) {
	q.mu.Lock()
	edit, ok := q.pending[missionID]
	if !ok {
		q.mu.Unlock()
		return
	}
	delete(q.pending, missionID)
	billing := edit.billing
	q.mu.Unlock()

	q.commitNow(missionID, billing)
}

func (q *Queue) commitNow(missionID string, billing models.Billing) {
	q.wg.Add(1)
	defer q.wg.Done()

	q.mu.Lock()
	ctx := q.baseCtx
	q.mu.Unlock()

	if err := q.commit(ctx, missionID, billing); err != nil {
		q.logger.Error("Failed to commit billing edit",
			zap.String("mission_id", missionID),
			zap.Error(err))
		return
	}
	q.logger.Debug("Billing edit committed", zap.String("mission_id", missionID))
}
