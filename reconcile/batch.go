/*
batch.go - Bounded atomic write groups

PURPOSE:
  The BatchWriter is the SOLE writer path to the ledger store. It
  partitions an intent stream into contiguous groups of at most Capacity
  operations and submits each group as one atomic unit, in order.

WHY A TYPE AND NOT A LOOP:
  The threshold check and the trailing partial group live inside Add/Flush,
  so a caller cannot silently drop a final sub-capacity group by forgetting
  the manual flush a hand-rolled accumulation loop would need.

CAPACITY:
  Capacity must stay safely under the store's per-submission mutation
  ceiling (450 against a ceiling of 500). Always leave headroom; never
  submit at the exact limit.

FAILURE:
  A submission failure for group k aborts without attempting group k+1.
  There is no partial-success continuation: Committed() advances only
  after a group commit succeeds, so "fixed" counts reported to the caller
  never overstate what the store actually accepted. Previously committed
  groups stand.
*/
package reconcile

import (
	"context"
	"log"
)

// DefaultBatchCapacity keeps 50 operations of headroom under the store's
// 500-mutation ceiling.
const DefaultBatchCapacity = 450

// BatchWriter accumulates write intents and commits them in bounded
// atomic groups.
type BatchWriter struct {
	store    LedgerStore
	capacity int

	pending     []WriteIntent
	committed   int
	submissions int
}

// NewBatchWriter creates a writer with the given group capacity. A
// capacity outside (0, MutationCeiling) falls back to the default.
func NewBatchWriter(store LedgerStore, capacity int) *BatchWriter {
	if capacity <= 0 || capacity >= MutationCeiling {
		capacity = DefaultBatchCapacity
	}
	return &BatchWriter{store: store, capacity: capacity}
}

// Add buffers one intent, submitting the current group if it has reached
// capacity. An error from the triggered submission aborts the run.
func (w *BatchWriter) Add(ctx context.Context, intent WriteIntent) error {
	w.pending = append(w.pending, intent)
	if len(w.pending) >= w.capacity {
		return w.submit(ctx)
	}
	return nil
}

// AddAll buffers a stream of intents, submitting full groups as they fill.
func (w *BatchWriter) AddAll(ctx context.Context, intents []WriteIntent) error {
	for _, intent := range intents {
		if err := w.Add(ctx, intent); err != nil {
			return err
		}
	}
	return nil
}

// Flush drains the trailing partial group. Always call after the last Add;
// a no-op when nothing is pending.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	return w.submit(ctx)
}

// Committed returns the number of operations acknowledged by successful
// group commits.
func (w *BatchWriter) Committed() int { return w.committed }

// Submissions returns how many atomic groups were committed.
func (w *BatchWriter) Submissions() int { return w.submissions }

// Pending returns the size of the un-submitted trailing group.
func (w *BatchWriter) Pending() int { return len(w.pending) }

func (w *BatchWriter) submit(ctx context.Context) error {
	group := w.pending
	w.pending = nil

	if err := w.store.ApplyBatch(ctx, group); err != nil {
		return &BatchCommitError{
			Group:     w.submissions + 1,
			GroupSize: len(group),
			Committed: w.committed,
			Cause:     err,
		}
	}

	w.submissions++
	w.committed += len(group)
	log.Printf("[BatchWriter] committed group %d (%d ops, %d total)",
		w.submissions, len(group), w.committed)
	return nil
}
