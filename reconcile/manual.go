/*
manual.go - Parameterized one-off ledger operations

PURPOSE:
  Narrow injectors an operator runs deliberately, outside the scheduled
  reconciliation job:

  seed  - inject a contiguous block of records for ONE user with explicit
          clock-in/out values, optionally randomized within a bound for a
          sub-range (backfilling demo/test data)
  purge - scan one user's records and delete any whose required fields
          (date, clockIn) are absent, reporting kept-vs-deleted counts

  Both reuse the ledger index's composite-key lookup discipline and flush
  every mutation through the BatchWriter; neither invents a second write
  path.

DETERMINISM:
  Randomized clock-in generation takes an injected *rand.Rand so tests can
  seed it and assert exact output. No hidden nondeterminism in core logic.

PURGE POLICY:
  "Broken" means exactly: zero date OR empty clockIn. Other malformed
  shapes are left in place for the auditor to surface; deleting on a wider
  heuristic could destroy recoverable rows.
*/
package reconcile

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// =============================================================================
// SEED - Inject a contiguous block of records for one user
// =============================================================================

// SeedSpec describes a seed operation. Dates must all belong to the one
// (Username, TenantID) pair; ClockIn/ClockOut are the explicit values.
// If RandomizeFrom is non-nil, dates on or after it get a clock-in
// randomized within [ClockIn, ClockIn+RandomWindow] instead.
type SeedSpec struct {
	Username string
	TenantID TenantID
	Dates    []time.Time
	ClockIn  string
	ClockOut string
	WorkMode WorkMode
	Location string
	Notes    string

	RandomizeFrom *time.Time
	RandomWindow  time.Duration
	Rand          *rand.Rand
}

// SeedResult reports what the seed run did.
type SeedResult struct {
	Created int
	Skipped int // dates that already had a record for the composite key
}

// SeedRecords injects one record per requested date, skipping dates the
// ledger already covers for the (username, tenant) key. Mutations go
// through the BatchWriter in bounded atomic groups.
func SeedRecords(ctx context.Context, store LedgerStore, capacity int, spec SeedSpec) (*SeedResult, error) {
	if spec.Username == "" || spec.TenantID == "" {
		return nil, fmt.Errorf("seed: username and tenant are required")
	}
	if len(spec.Dates) == 0 {
		return &SeedResult{}, nil
	}

	from, to := spec.Dates[0], spec.Dates[0]
	for _, d := range spec.Dates {
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}

	index, err := BuildLedgerIndex(ctx, store, from, to)
	if err != nil {
		return nil, err
	}

	writer := NewBatchWriter(store, capacity)
	result := &SeedResult{}
	now := time.Now().UTC()

	for _, d := range spec.Dates {
		if _, exists := index.Lookup(spec.Username, spec.TenantID, d); exists {
			result.Skipped++
			continue
		}

		clockIn := spec.ClockIn
		if spec.RandomizeFrom != nil && !DayOf(d).Before(DayOf(*spec.RandomizeFrom)) {
			clockIn = randomizeClock(spec.ClockIn, spec.RandomWindow, spec.Rand)
		}

		err := writer.Add(ctx, WriteIntent{
			Op: OpCreate,
			Record: AttendanceRecord{
				Username:   spec.Username,
				TenantID:   spec.TenantID,
				Date:       DayOf(d),
				Status:     StatusPresent,
				ClockIn:    clockIn,
				ClockOut:   spec.ClockOut,
				WorkMode:   spec.WorkMode,
				Location:   spec.Location,
				TotalHours: hoursBetween(clockIn, spec.ClockOut),
				Notes:      spec.Notes,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		})
		if err != nil {
			return nil, err
		}
		result.Created++
	}

	if err := writer.Flush(ctx); err != nil {
		return nil, err
	}

	log.Printf("[Seed] %s/%s: %d created, %d skipped (already present)",
		spec.Username, spec.TenantID, result.Created, result.Skipped)
	return result, nil
}

// randomizeClock shifts an "HH:MM" base forward by a random offset within
// the window. Falls back to the base on unparsable input or a nil source.
func randomizeClock(base string, window time.Duration, rng *rand.Rand) string {
	t, err := time.Parse("15:04", base)
	if err != nil || rng == nil || window < time.Minute {
		return base
	}
	offset := time.Duration(rng.Int63n(int64(window / time.Minute))) * time.Minute
	return t.Add(offset).Format("15:04")
}

// =============================================================================
// PURGE - Delete malformed records for one user
// =============================================================================

// PurgeResult reports kept-vs-deleted counts for a purge pass.
type PurgeResult struct {
	Kept    int
	Deleted int
}

// PurgeBroken scans every record for (username, tenant) and deletes those
// missing a date or a clockIn. Deletions flush through the BatchWriter.
func PurgeBroken(ctx context.Context, store LedgerStore, capacity int, username string, tenant TenantID) (*PurgeResult, error) {
	records, err := store.QueryByUser(ctx, username, tenant)
	if err != nil {
		return nil, &LedgerQueryError{Cause: err}
	}

	writer := NewBatchWriter(store, capacity)
	result := &PurgeResult{}

	for _, rec := range records {
		if !rec.Date.IsZero() && rec.ClockIn != "" {
			result.Kept++
			continue
		}
		if err := writer.Add(ctx, WriteIntent{Op: OpDelete, Record: rec}); err != nil {
			return nil, err
		}
		result.Deleted++
	}

	if err := writer.Flush(ctx); err != nil {
		return nil, err
	}

	log.Printf("[Purge] %s/%s: %d kept, %d deleted", username, tenant, result.Kept, result.Deleted)
	return result, nil
}
