/*
store.go - Persistence interface for the attendance ledger

PURPOSE:
  Defines the interface between the reconciliation core and the ledger
  store. Different implementations can use SQLite or in-memory storage.

WRITE PATH:
  ApplyBatch is the ONLY mutation entry point, and the BatchWriter is the
  only component that calls it. No other code path issues direct writes,
  so partial, inconsistent writes from competing code paths cannot
  happen.

ATOMICITY:
  ApplyBatch commits a group of create/update/delete operations as one
  all-or-nothing unit, up to MutationCeiling operations. Submitting above
  the ceiling is a caller bug and is rejected with ErrBatchTooLarge.
  The BatchWriter always stays below the ceiling (capacity 450 vs 500).

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite store
  - reconcile/store/memory.go: In-memory for testing
*/
package reconcile

import (
	"context"
	"time"
)

// MutationCeiling is the underlying store's hard per-submission limit.
// The BatchWriter's capacity must stay safely under it - never submit at
// the exact limit.
const MutationCeiling = 500

// LedgerStore is the persisted attendance ledger.
type LedgerStore interface {
	// QueryRange returns all records whose day falls in [from, to], a
	// CLOSED interval on day-normalized bounds. One range query per call;
	// no pagination beyond the store's single-query capability.
	QueryRange(ctx context.Context, from, to time.Time) ([]AttendanceRecord, error)

	// QueryByUser returns all records for one (username, tenant) pair.
	// Used by the manual purge operation.
	QueryByUser(ctx context.Context, username string, tenant TenantID) ([]AttendanceRecord, error)

	// AllRecords returns the entire unwindowed ledger. Auditor only.
	AllRecords(ctx context.Context) ([]AttendanceRecord, error)

	// ApplyBatch atomically applies up to MutationCeiling operations.
	// All-or-nothing: on error, no operation in the group is persisted.
	ApplyBatch(ctx context.Context, intents []WriteIntent) error
}
