package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/vigil-data/vigil/internal/common"
	"github.com/vigil-data/vigil/internal/fills"
	"github.com/vigil-data/vigil/internal/metrics"
	"github.com/vigil-data/vigil/internal/sink"
)

// Store is the database surface the load pipeline needs. *storage.Postgres
// implements it.
type Store interface {
	// LoadedIDs returns the partition ids the progress ledger already has.
	LoadedIDs(ctx context.Context) (map[string]struct{}, error)
	// LoadPartition commits the frame and its ledger entry atomically.
	LoadPartition(ctx context.Context, frame *fills.Frame, partitionID string) (int64, error)
	// TruncateAll wipes the fills table and the ledger together.
	TruncateAll(ctx context.Context) error
}

// Loader bulk-loads sink partitions into the fills table. The work list is
// computed once at start, pre-filtered against the progress ledger so
// already-loaded partitions are skipped before any I/O.
type Loader struct {
	store   Store
	sink    sink.Sink
	retry   RetryPolicy
	workers int
	logger  zerolog.Logger
}

func NewLoader(store Store, snk sink.Sink, retry RetryPolicy, workers int, logger zerolog.Logger) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		store:   store,
		sink:    snk,
		retry:   retry,
		workers: workers,
		logger:  logger,
	}
}

// Truncate wipes the fills table and the progress ledger in one transaction.
func (l *Loader) Truncate(ctx context.Context) error {
	return l.store.TruncateAll(ctx)
}

// Run loads every sink partition (optionally restricted to one date) that the
// ledger does not already have. Top-level faults (cannot list the sink,
// cannot read the ledger) abort the run; per-partition failures are collected
// and reported.
func (l *Loader) Run(ctx context.Context, dateFilter string) (Summary, error) {
	parts, err := l.sink.List(ctx, dateFilter)
	if err != nil {
		return Summary{}, fmt.Errorf("list partitions: %w", err)
	}

	loaded, err := l.store.LoadedIDs(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read progress ledger: %w", err)
	}

	work, skipped := FilterLoaded(parts, loaded)
	collector := &summaryCollector{}
	for _, id := range skipped {
		metrics.PartitionsSkipped.Inc()
		collector.skipped(id)
	}
	l.logger.Info().
		Int("available", len(parts)).
		Int("already_loaded", len(skipped)).
		Int("to_load", len(work)).
		Msg("computed work list")

	sem := semaphore.NewWeighted(int64(l.workers))
	for _, p := range work {
		if err := sem.Acquire(ctx, 1); err != nil {
			collector.failed(p.ID(), err)
			continue
		}
		go func(p common.Partition) {
			defer sem.Release(1)
			rows, err := l.loadOne(ctx, p)
			if err != nil {
				metrics.PartitionsFailed.Inc()
				collector.failed(p.ID(), err)
				l.logger.Error().Str("partition", p.ID()).Err(err).Msg("partition load failed")
				return
			}
			metrics.PartitionsLoaded.Inc()
			metrics.RowsLoaded.Add(float64(rows))
			collector.done(p.ID(), rows)
			l.logger.Info().Str("partition", p.ID()).Int64("rows", rows).Msg("loaded partition")
		}(p)
	}

	// drain the pool
	if err := sem.Acquire(context.Background(), int64(l.workers)); err == nil {
		sem.Release(int64(l.workers))
	}

	return collector.summary(), nil
}

// loadOne reads one partition back from the sink and hands it to the store,
// which commits the COPY stream and the progress insert together or not at
// all.
func (l *Loader) loadOne(ctx context.Context, p common.Partition) (int64, error) {
	var frame *fills.Frame
	err := l.retry.Do(ctx, "read "+p.ID(), func() error {
		var rerr error
		frame, rerr = l.sink.Read(ctx, p)
		return rerr
	})
	if err != nil {
		return 0, err
	}

	return l.store.LoadPartition(ctx, frame, p.ID())
}

// FilterLoaded splits the candidate list into partitions still to load and
// the ids the ledger already has.
func FilterLoaded(parts []common.Partition, loaded map[string]struct{}) ([]common.Partition, []string) {
	var work []common.Partition
	var skipped []string
	for _, p := range parts {
		if _, ok := loaded[p.ID()]; ok {
			skipped = append(skipped, p.ID())
			continue
		}
		work = append(work, p)
	}
	return work, skipped
}
