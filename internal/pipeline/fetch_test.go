package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-data/vigil/internal/common"
	"github.com/vigil-data/vigil/internal/fills"
	"github.com/vigil-data/vigil/internal/metrics"
)

func testRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Backoff:     func(int) time.Duration { return 0 },
		Sleep:       func(time.Duration) {},
	}
}

func frameWithRows(t *testing.T, n int) *fills.Frame {
	t.Helper()
	var records []fills.Record
	for i := 0; i < n; i++ {
		records = append(records, fills.Record{
			"time": int64(1753600000000 + i),
			"user": fmt.Sprintf("0x%02d", i),
			"coin": "BTC",
		})
	}
	frame, err := fills.Normalize(records)
	require.NoError(t, err)
	return frame
}

// fakeSink is an in-memory Sink keyed by partition id.
type fakeSink struct {
	mu     sync.Mutex
	frames map[string]*fills.Frame
	raws   map[string][]byte
}

func newFakeSink() *fakeSink {
	return &fakeSink{frames: map[string]*fills.Frame{}, raws: map[string][]byte{}}
}

func (s *fakeSink) Exists(ctx context.Context, p common.Partition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.frames[p.ID()]
	return ok, nil
}

func (s *fakeSink) Write(ctx context.Context, p common.Partition, frame *fills.Frame) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame.NumRows() == 0 {
		return 0, nil
	}
	s.frames[p.ID()] = frame
	return frame.NumRows(), nil
}

func (s *fakeSink) WriteRaw(ctx context.Context, p common.Partition, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raws[p.ID()] = raw
	return nil
}

func (s *fakeSink) Read(ctx context.Context, p common.Partition) (*fills.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame, ok := s.frames[p.ID()]
	if !ok {
		return nil, fmt.Errorf("partition %s: %w", p.ID(), common.ErrNotFound)
	}
	return frame, nil
}

func (s *fakeSink) List(ctx context.Context, dateFilter string) ([]common.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var parts []common.Partition
	for id := range s.frames {
		p, err := common.ParsePartitionID(id)
		if err != nil {
			return nil, err
		}
		if dateFilter != "" && p.Date != dateFilter {
			continue
		}
		parts = append(parts, p)
	}
	common.SortPartitions(parts)
	return parts, nil
}

func TestFetchSkipsExistingPartition(t *testing.T) {
	snk := newFakeSink()
	p := common.Partition{Date: "20250727", Hour: 5}
	snk.frames[p.ID()] = frameWithRows(t, 1)

	// The source is never touched for an already-fetched partition, so nil
	// is safe here.
	fetcher := NewFetcher(nil, snk, testRetry(), 1, false, zerolog.Nop())

	before := testutil.ToFloat64(metrics.PartitionsAlreadyFetched)
	summary := fetcher.Run(context.Background(), []common.Partition{p})

	assert.Equal(t, []string{p.ID()}, summary.Skipped)
	assert.Empty(t, summary.Done)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PartitionsAlreadyFetched))
}
