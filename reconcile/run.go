/*
run.go - Job orchestration

PURPOSE:
  Wires the components together in a fixed control-flow order: load the
  directory snapshot, resolve the policy calendar for the window, build the
  ledger index for the same window, run the engine, flush the intents
  through the bounded batch writer. Prints the per-date running log and a
  final aggregate summary.

FAILURE:
  Structural failures (directory load, ledger query, batch commit) abort
  the run and propagate; per-record failures are already isolated inside
  the engine. On abort, committed groups stand and no summary is printed
  by the caller.

CONCURRENCY:
  One job instance runs to completion before another starts. The ledger
  index is a point-in-time snapshot taken before the engine runs, so
  concurrent runs on overlapping windows risk duplicate create intents.
  The "one reconciliation job per tenant at a time" discipline belongs to
  the job scheduler, not this engine.
*/
package reconcile

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
)

// DefaultLookbackMonths is the window the flagless invocation reconciles:
// six months back from today.
const DefaultLookbackMonths = 6

// Config carries a run's dependencies and parameters. Directory, Store and
// Holidays are required; zero-value window fields select the default
// six-month lookback ending today.
type Config struct {
	Directory DirectoryService
	Store     LedgerStore
	Holidays  []Holiday
	RestDay   time.Weekday

	From, To time.Time
	Capacity int

	// Now is the injected clock (defaults to time.Now).
	Now func() time.Time
}

func (c *Config) window() (time.Time, time.Time) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	from, to := c.From, c.To
	if from.IsZero() || to.IsZero() {
		to = DayOf(now())
		from = DayOf(to.AddDate(0, -DefaultLookbackMonths, 0))
	}
	return DayOf(from), DayOf(to)
}

// Run executes one full reconciliation pass and returns its report.
func Run(ctx context.Context, cfg Config) (*RunReport, error) {
	from, to := cfg.window()
	log.Printf("[Run] reconciling [%s, %s]", from.Format("2006-01-02"), to.Format("2006-01-02"))

	snap, err := LoadDirectory(ctx, cfg.Directory)
	if err != nil {
		return nil, err
	}
	log.Printf("[Run] directory: %d users across %d tenants", len(snap.Users), len(snap.Tenants))

	// time.Sunday is 0, so the zero value of RestDay is already the default.
	dates := ResolvePolicyDates(from, to, cfg.Holidays, cfg.RestDay)
	log.Printf("[Run] policy calendar: %d rest dates in window", len(dates))

	index, err := BuildLedgerIndex(ctx, cfg.Store, from, to)
	if err != nil {
		return nil, err
	}
	if index.Duplicates > 0 {
		log.Printf("[Run] WARNING: %d natural-key duplicates in window (run the auditor)", index.Duplicates)
	}

	engine := &Engine{Now: cfg.Now}
	if engine.Now == nil {
		engine.Now = time.Now
	}
	intents, report := engine.Reconcile(ctx, dates, snap.Users, index)

	writer := NewBatchWriter(cfg.Store, cfg.Capacity)
	if err := writer.AddAll(ctx, intents); err != nil {
		return nil, err
	}
	if err := writer.Flush(ctx); err != nil {
		return nil, err
	}

	report.Committed = writer.Committed()
	report.Submissions = writer.Submissions()
	return report, nil
}

// RunAudit loads a fresh directory snapshot and runs the read-only
// tenant-consistency sweep over the full ledger.
func RunAudit(ctx context.Context, cfg Config) (*AuditReport, error) {
	snap, err := LoadDirectory(ctx, cfg.Directory)
	if err != nil {
		return nil, err
	}
	auditor := &Auditor{Store: cfg.Store}
	return auditor.Audit(ctx, snap)
}

// WriteSummary prints the human-readable run summary: per-date counts, then
// the aggregate including how much actually committed.
func WriteSummary(w io.Writer, report *RunReport) {
	fmt.Fprintf(w, "Reconciliation summary [%s .. %s]\n",
		report.WindowFrom.Format("2006-01-02"), report.WindowTo.Format("2006-01-02"))

	for _, dr := range report.Dates {
		fmt.Fprintf(w, "  %s  %-28s users=%d created=%d corrected=%d ok=%d left=%d skipped=%d\n",
			dr.Date.Format("2006-01-02"), dr.Reason, dr.UsersChecked,
			dr.Created, dr.Corrected, dr.AlreadyCorrect, dr.LeftAsIs, dr.Skipped)
	}

	fmt.Fprintf(w, "Dates checked:   %d\n", report.DatesChecked)
	fmt.Fprintf(w, "Users checked:   %d\n", report.UsersChecked)
	fmt.Fprintf(w, "Issues found:    %d (%d missing, %d incorrect)\n",
		report.IssuesFound(), report.Created, report.Corrected)
	fmt.Fprintf(w, "Issues fixed:    %d in %d atomic submissions\n",
		report.Committed, report.Submissions)
	fmt.Fprintf(w, "Left as-is:      %d, skipped: %d\n", report.LeftAsIs, report.Skipped)
}

// WriteAuditSummary prints the auditor's findings.
func WriteAuditSummary(w io.Writer, report *AuditReport) {
	fmt.Fprintf(w, "Tenant audit: %d records scanned\n", report.RecordsScanned)
	for _, m := range report.Mismatched {
		fmt.Fprintf(w, "  MISMATCH %s: %s stored=%s canonical=%s date=%s\n",
			m.RecordID, m.Username, m.StoredTenant, m.CanonicalTenant, m.Date.Format("2006-01-02"))
	}
	for _, name := range report.Orphaned {
		fmt.Fprintf(w, "  ORPHAN %s: no directory entry\n", name)
	}
	if report.Clean() {
		fmt.Fprintln(w, "  no issues found")
	}
}
