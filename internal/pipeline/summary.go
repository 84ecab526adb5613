package pipeline

import "sync"

// Failure records one partition that could not be processed.
type Failure struct {
	ID  string
	Err string
}

// Summary is the end-of-run report. Per-partition failures never abort the
// run; they are collected here and the caller decides the exit status.
type Summary struct {
	Rows    int64    // total rows written/loaded
	Done    []string // completed partition ids
	Skipped []string // already-done partition ids
	Empty   []string // partitions that decoded to zero fills
	Failed  []Failure
}

// TotalFailure reports whether nothing succeeded while something failed.
func (s *Summary) TotalFailure() bool {
	return len(s.Done) == 0 && len(s.Failed) > 0
}

const maxErrLen = 200

func truncateErr(err error) string {
	msg := err.Error()
	if len(msg) > maxErrLen {
		return msg[:maxErrLen] + "..."
	}
	return msg
}

// summaryCollector accumulates results from concurrent workers.
type summaryCollector struct {
	mu sync.Mutex
	s  Summary
}

func (c *summaryCollector) done(id string, rows int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Done = append(c.s.Done, id)
	c.s.Rows += rows
}

func (c *summaryCollector) skipped(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Skipped = append(c.s.Skipped, id)
}

func (c *summaryCollector) empty(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Empty = append(c.s.Empty, id)
}

func (c *summaryCollector) failed(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Failed = append(c.s.Failed, Failure{ID: id, Err: truncateErr(err)})
}

func (c *summaryCollector) summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
