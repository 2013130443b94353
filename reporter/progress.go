package reporter

import "sync"

// Progress is a snapshot of one dimension of build progress: how many
// of Total items have completed, and how many of TotalSize bytes have
// moved, whichever dimensions the caller tracks.
type Progress struct {
	Items      int
	TotalItems int
	Size       int64
	TotalSize  int64
}

// ProgressAggregator tracks per-node progress and decides when the
// overall build is "finished" for progress-bar purposes.
//
// Two semantics for checkIfFinished are plausible: strict equality on
// both the item count and the byte count, or treating any single
// completed dimension as sufficient to declare the whole aggregate
// finished. The latter is non-deterministic under partial-completion
// events (a size update arriving after the item count already reached
// its total could flip "finished" true and then observe more
// updates). This implementation uses the strict-equality variant:
// finished requires every tracked dimension to have reached its total.
type ProgressAggregator struct {
	mu       sync.Mutex
	progress Progress
}

// NewProgressAggregator returns an aggregator targeting totalItems
// items and totalSize bytes. A zero total for a dimension excludes it
// from the finished check.
func NewProgressAggregator(totalItems int, totalSize int64) *ProgressAggregator {
	return &ProgressAggregator{progress: Progress{TotalItems: totalItems, TotalSize: totalSize}}
}

// Advance records items more completed items and sizeDelta more bytes.
func (p *ProgressAggregator) Advance(items int, sizeDelta int64) Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress.Items += items
	p.progress.Size += sizeDelta
	return p.progress
}

// Snapshot returns the current progress.
func (p *ProgressAggregator) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// checkIfFinished reports whether pr represents a finished build under
// the strict-equality variant: every tracked dimension (one with a
// non-zero total) must have reached its total exactly.
func checkIfFinished(pr Progress) bool {
	itemsDone := pr.TotalItems == 0 || pr.Items == pr.TotalItems
	sizeDone := pr.TotalSize == 0 || pr.Size == pr.TotalSize
	return itemsDone && sizeDone
}

// Finished reports whether the aggregator's current progress is
// finished under checkIfFinished's strict-equality rule.
func (p *ProgressAggregator) Finished() bool {
	return checkIfFinished(p.Snapshot())
}
