package persist

import (
	"context"

	"github.com/citysim/core/internal/city"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchWriter stores a batch of stats rows atomically.
type BatchWriter interface {
	WriteBatch(ctx context.Context, rows []StatsRow) error
}

// Journal buffers city snapshots and writes them out every flushEvery
// recorded cycles. A failed batch stays buffered for the next flush. At most
// maxPending rows are buffered; beyond that the oldest rows are dropped.
type Journal struct {
	session    uuid.UUID
	w          BatchWriter
	flushEvery int
	maxPending int
	log        *zap.Logger

	pending []StatsRow
	cycles  int
	written int
	dropped int
}

// NewJournal creates a journal. maxPending is raised to at least flushEvery.
func NewJournal(session uuid.UUID, w BatchWriter, flushEvery, maxPending int, log *zap.Logger) *Journal {
	if flushEvery < 1 {
		flushEvery = 1
	}
	if maxPending < flushEvery {
		maxPending = flushEvery
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{session: session, w: w, flushEvery: flushEvery, maxPending: maxPending, log: log}
}

// Record buffers one cycle's snapshots and flushes when due.
func (j *Journal) Record(ctx context.Context, cycle uint64, stats []city.Stats) error {
	for _, s := range stats {
		j.pending = append(j.pending, StatsRow{SessionID: j.session, Cycle: cycle, Stats: s})
	}
	j.trim()
	j.cycles++
	if j.cycles < j.flushEvery {
		return nil
	}
	return j.Flush(ctx)
}

// Flush writes everything buffered.
func (j *Journal) Flush(ctx context.Context) error {
	j.cycles = 0
	if len(j.pending) == 0 {
		return nil
	}
	if err := j.w.WriteBatch(ctx, j.pending); err != nil {
		j.log.Warn("stats flush failed", zap.Int("rows", len(j.pending)), zap.Error(err))
		return err
	}
	j.written += len(j.pending)
	j.log.Debug("stats flushed", zap.Int("rows", len(j.pending)), zap.Int("total", j.written))
	j.pending = j.pending[:0]
	return nil
}

// trim drops the oldest rows above maxPending.
func (j *Journal) trim() {
	over := len(j.pending) - j.maxPending
	if over <= 0 {
		return
	}
	n := copy(j.pending, j.pending[over:])
	clear(j.pending[n:])
	j.pending = j.pending[:n]
	j.dropped += over
	j.log.Warn("stats journal full, dropped oldest rows",
		zap.Int("dropped", over),
		zap.Int("dropped_total", j.dropped),
		zap.Int("max_pending", j.maxPending),
	)
}

func (j *Journal) Pending() int { return len(j.pending) }
func (j *Journal) Written() int { return j.written }
func (j *Journal) Dropped() int { return j.dropped }
