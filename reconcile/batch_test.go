package reconcile_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/reconcile"
	"github.com/warp/attendance-engine/reconcile/store"
)

func createIntents(n int) []reconcile.WriteIntent {
	intents := make([]reconcile.WriteIntent, 0, n)
	base := day(2025, time.March, 1)
	for i := 0; i < n; i++ {
		intents = append(intents, reconcile.WriteIntent{
			Op: reconcile.OpCreate,
			Record: reconcile.AttendanceRecord{
				Username: fmt.Sprintf("user-%d", i),
				TenantID: "T1",
				Date:     base,
				Status:   reconcile.StatusPresent,
				ClockIn:  reconcile.DefaultClockIn,
				ClockOut: reconcile.DefaultClockOut,
			},
		})
	}
	return intents
}

// =============================================================================
// GROUPING
// =============================================================================

func TestBatchWriter_SplitsAtCapacity(t *testing.T) {
	// GIVEN: 460 intents and the default capacity of 450
	// WHEN: Adding all and flushing
	// THEN: Two submissions (450 + 10), all 460 committed

	ledger := store.NewMemory()
	ctx := context.Background()
	writer := reconcile.NewBatchWriter(ledger, 0)

	require.NoError(t, writer.AddAll(ctx, createIntents(460)))
	require.NoError(t, writer.Flush(ctx))

	assert.Equal(t, 2, writer.Submissions())
	assert.Equal(t, 460, writer.Committed())
	assert.Equal(t, 0, writer.Pending())
	assert.Equal(t, 460, ledger.Len())
	assert.Equal(t, 2, ledger.Writes)
}

func TestBatchWriter_ExactMultipleOfCapacity(t *testing.T) {
	// GIVEN: Exactly 2x capacity intents
	// WHEN: Adding all and flushing
	// THEN: Two full groups, no empty trailing submission

	ledger := store.NewMemory()
	ctx := context.Background()
	writer := reconcile.NewBatchWriter(ledger, 50)

	require.NoError(t, writer.AddAll(ctx, createIntents(100)))
	require.NoError(t, writer.Flush(ctx))

	assert.Equal(t, 2, writer.Submissions())
	assert.Equal(t, 100, writer.Committed())
	assert.Equal(t, 2, ledger.Writes)
}

func TestBatchWriter_TrailingPartialNeedsFlush(t *testing.T) {
	// GIVEN: Fewer intents than capacity
	// WHEN: Adding without flushing
	// THEN: Nothing is committed until Flush drains the partial group

	ledger := store.NewMemory()
	ctx := context.Background()
	writer := reconcile.NewBatchWriter(ledger, 50)

	require.NoError(t, writer.AddAll(ctx, createIntents(7)))
	assert.Equal(t, 0, writer.Committed())
	assert.Equal(t, 7, writer.Pending())
	assert.Equal(t, 0, ledger.Len())

	require.NoError(t, writer.Flush(ctx))
	assert.Equal(t, 1, writer.Submissions())
	assert.Equal(t, 7, writer.Committed())
	assert.Equal(t, 7, ledger.Len())
}

func TestBatchWriter_FlushOnEmpty_NoOp(t *testing.T) {
	ledger := store.NewMemory()
	writer := reconcile.NewBatchWriter(ledger, 50)

	require.NoError(t, writer.Flush(context.Background()))
	assert.Equal(t, 0, writer.Submissions())
	assert.Equal(t, 0, ledger.Writes)
}

// =============================================================================
// CAPACITY VALIDATION
// =============================================================================

func TestBatchWriter_InvalidCapacity_FallsBackToDefault(t *testing.T) {
	// A capacity at or above the store ceiling, or non-positive, must not
	// be honored. Submit 451 intents with a requested capacity of 500: the
	// writer should split at 450 rather than risk the ceiling.

	ledger := store.NewMemory()
	ctx := context.Background()
	writer := reconcile.NewBatchWriter(ledger, reconcile.MutationCeiling)

	require.NoError(t, writer.AddAll(ctx, createIntents(451)))
	require.NoError(t, writer.Flush(ctx))
	assert.Equal(t, 2, writer.Submissions())

	writer = reconcile.NewBatchWriter(ledger, -5)
	require.NoError(t, writer.AddAll(ctx, createIntents(reconcile.DefaultBatchCapacity)))
	assert.Equal(t, 1, writer.Submissions(), "default capacity group should auto-submit")
}

// =============================================================================
// COMMIT FAILURE
// =============================================================================

func TestBatchWriter_FailedGroup_AbortsBeforeNext(t *testing.T) {
	// GIVEN: A store that fails on the second group
	// WHEN: Writing three groups' worth of intents
	// THEN: The error carries group metadata, Committed reflects only the
	//       first group, and no third submission is attempted

	ledger := store.NewMemory()
	ledger.FailAfter = 1
	ctx := context.Background()
	writer := reconcile.NewBatchWriter(ledger, 10)

	err := writer.AddAll(ctx, createIntents(30))
	require.Error(t, err)

	var commitErr *reconcile.BatchCommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, 2, commitErr.Group)
	assert.Equal(t, 10, commitErr.GroupSize)
	assert.Equal(t, 10, commitErr.Committed)
	assert.ErrorIs(t, err, reconcile.ErrBatchCommitFailed)

	assert.Equal(t, 10, writer.Committed(), "only the first group counts as committed")
	assert.Equal(t, 1, writer.Submissions())
	assert.Equal(t, 10, ledger.Len(), "failed group must not partially apply")
}
