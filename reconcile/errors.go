/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Structural errors - directory load, ledger query, batch commit.
     These are fatal: the run aborts, previously committed groups stand,
     and no summary is printed.
  2. Record errors - a single (user, date) pairing could not be evaluated
     (e.g. malformed stored date). These are isolated: logged, counted in
     the run report, never thrown upward.

USAGE:
  if errors.Is(err, reconcile.ErrBatchCommitFailed) {
      // groups before the failed one are committed and stand
  }

SEE ALSO:
  - engine.go: Skips record errors, aborts on structural errors
  - batch.go: Wraps commit failures with group context
*/
package reconcile

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDirectoryUnavailable is returned when the full directory read cannot
	// complete. The job aborts rather than reconciling against a partial
	// directory: a partial user list would miscount missing-record cases.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrLedgerQueryFailed is returned when a ledger range query fails.
	// Aborts the run.
	ErrLedgerQueryFailed = errors.New("ledger query failed")

	// ErrBatchCommitFailed is returned when an atomic write group fails.
	// Aborts the run without attempting later groups.
	ErrBatchCommitFailed = errors.New("batch commit failed")

	// ErrBatchTooLarge is returned by a store when a submitted group exceeds
	// its per-submission mutation ceiling.
	ErrBatchTooLarge = errors.New("batch exceeds store mutation ceiling")

	// ErrRecordField is the isolated per-record evaluation failure. Logged
	// and skipped; counted in the run report, never fatal.
	ErrRecordField = errors.New("record field error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DirectoryUnavailableError wraps the underlying directory read failure.
type DirectoryUnavailableError struct {
	Cause error
}

func (e *DirectoryUnavailableError) Error() string {
	return fmt.Sprintf("directory unavailable: %v", e.Cause)
}

func (e *DirectoryUnavailableError) Unwrap() error { return ErrDirectoryUnavailable }

// LedgerQueryError wraps a failed range query with its window.
type LedgerQueryError struct {
	From  time.Time
	To    time.Time
	Cause error
}

func (e *LedgerQueryError) Error() string {
	if e.From.IsZero() && e.To.IsZero() {
		return fmt.Sprintf("ledger query failed for full ledger: %v", e.Cause)
	}
	return fmt.Sprintf("ledger query failed for [%s, %s]: %v",
		e.From.Format("2006-01-02"), e.To.Format("2006-01-02"), e.Cause)
}

func (e *LedgerQueryError) Unwrap() error { return ErrLedgerQueryFailed }

// BatchCommitError reports which group failed and how much was already
// committed. Committed counts never overstate what the store accepted:
// they advance only after a successful group commit.
type BatchCommitError struct {
	Group     int // 1-based index of the failed group
	GroupSize int
	Committed int // operations committed by earlier groups
	Cause     error
}

func (e *BatchCommitError) Error() string {
	return fmt.Sprintf("batch commit failed at group %d (%d ops, %d committed before): %v",
		e.Group, e.GroupSize, e.Committed, e.Cause)
}

func (e *BatchCommitError) Unwrap() error { return ErrBatchCommitFailed }

// RecordFieldError identifies the pairing that could not be evaluated.
type RecordFieldError struct {
	Username string
	TenantID TenantID
	Date     time.Time
	Field    string
	Cause    error
}

func (e *RecordFieldError) Error() string {
	return fmt.Sprintf("record field %q unusable for %s/%s on %s: %v",
		e.Field, e.Username, e.TenantID, e.Date.Format("2006-01-02"), e.Cause)
}

func (e *RecordFieldError) Unwrap() error { return ErrRecordField }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal returns true if the error must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDirectoryUnavailable) ||
		errors.Is(err, ErrLedgerQueryFailed) ||
		errors.Is(err, ErrBatchCommitFailed)
}

// IsRecordError returns true if the error is isolated to one record/user
// pairing and should be counted, not propagated.
func IsRecordError(err error) bool {
	return errors.Is(err, ErrRecordField)
}
