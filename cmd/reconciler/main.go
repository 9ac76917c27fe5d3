/*
main.go - Batch reconciler entry point

PURPOSE:
  One-shot command-line front end for the attendance reconciliation
  engine. Runs a reconciliation pass, a read-only audit, or one of the
  manual maintenance operations (seed, purge) and exits.

MODES (-mode):
  run     Reconcile rest-day attendance over a window (default)
  audit   Read-only tenant-consistency scan, no writes
  seed    Insert present records for a user over explicit dates
  purge   Delete a user's broken records (zero date or empty clock-in)

COMMAND-LINE FLAGS:
  -db         SQLite database path (default: attendance.db)
  -calendar   Path to a holiday calendar JSON file (default: built-in)
  -from, -to  Window bounds as YYYY-MM-DD (default: 6-month lookback)
  -capacity   Batch writer capacity (0 for default)
  -user       Username for seed/purge
  -tenant     Tenant for seed/purge
  -dates      Comma-separated YYYY-MM-DD dates for seed
  -randomize  Randomize seeded clock-ins around the default

EXIT STATUS:
  0 on success (a summary is printed to stdout), non-zero on any fatal
  failure (directory, ledger, or commit). A failed run prints the error
  and no summary; partial commits are reported inside the error.

EXAMPLES:
  # Default 6-month reconciliation
  ./reconciler -db=./attendance.db

  # Explicit window
  ./reconciler -from=2025-01-01 -to=2025-03-31

  # Tenant audit
  ./reconciler -mode=audit

  # Seed and purge
  ./reconciler -mode=seed -user=alice -tenant=T1 -dates=2025-01-26,2025-02-02
  ./reconciler -mode=purge -user=alice -tenant=T1

SEE ALSO:
  - reconcile/run.go: Run orchestration
  - reconcile/manual.go: Seed and purge operations
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/reconcile"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	mode := flag.String("mode", "run", "Operation: run, audit, seed, purge")
	dbPath := flag.String("db", "attendance.db", "SQLite database path")
	calendarPath := flag.String("calendar", "", "Holiday calendar JSON file (empty for built-in)")
	fromStr := flag.String("from", "", "Window start (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Window end (YYYY-MM-DD)")
	capacity := flag.Int("capacity", 0, "Batch writer capacity (0 for default)")
	user := flag.String("user", "", "Username (seed/purge)")
	tenant := flag.String("tenant", "", "Tenant (seed/purge)")
	dates := flag.String("dates", "", "Comma-separated dates (seed)")
	randomize := flag.Bool("randomize", false, "Randomize seeded clock-ins")
	flag.Parse()

	if err := run(*mode, *dbPath, *calendarPath, *fromStr, *toStr, *capacity, *user, *tenant, *dates, *randomize); err != nil {
		fmt.Fprintf(os.Stderr, "reconciler: %v\n", err)
		os.Exit(1)
	}
}

func run(mode, dbPath, calendarPath, fromStr, toStr string, capacity int, user, tenant, dates string, randomize bool) error {
	ctx := context.Background()

	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	switch mode {
	case "run":
		return runReconcile(ctx, store, calendarPath, fromStr, toStr, capacity)
	case "audit":
		return runAudit(ctx, store)
	case "seed":
		return runSeed(ctx, store, capacity, user, tenant, dates, randomize)
	case "purge":
		return runPurge(ctx, store, capacity, user, tenant)
	default:
		return fmt.Errorf("unknown mode %q (want run, audit, seed, or purge)", mode)
	}
}

func runReconcile(ctx context.Context, store *sqlite.Store, calendarPath, fromStr, toStr string, capacity int) error {
	cal := factory.DefaultCalendar()
	if calendarPath != "" {
		data, err := os.ReadFile(calendarPath)
		if err != nil {
			return fmt.Errorf("read calendar: %w", err)
		}
		cal, err = factory.ParseCalendar(string(data))
		if err != nil {
			return fmt.Errorf("parse calendar: %w", err)
		}
	}

	from, to, err := parseWindow(fromStr, toStr)
	if err != nil {
		return err
	}

	log.Printf("[Reconciler] Starting run against %d holidays, rest day %v", len(cal.Holidays), cal.RestDay)

	report, err := reconcile.Run(ctx, reconcile.Config{
		Directory: store,
		Store:     store,
		Holidays:  cal.Holidays,
		RestDay:   cal.RestDay,
		From:      from,
		To:        to,
		Capacity:  capacity,
	})
	if err != nil {
		return err
	}

	reconcile.WriteSummary(os.Stdout, report)
	return nil
}

func runAudit(ctx context.Context, store *sqlite.Store) error {
	report, err := reconcile.RunAudit(ctx, reconcile.Config{
		Directory: store,
		Store:     store,
	})
	if err != nil {
		return err
	}

	reconcile.WriteAuditSummary(os.Stdout, report)
	return nil
}

func runSeed(ctx context.Context, store *sqlite.Store, capacity int, user, tenant, dates string, randomize bool) error {
	if user == "" || tenant == "" {
		return fmt.Errorf("seed requires -user and -tenant")
	}
	if dates == "" {
		return fmt.Errorf("seed requires -dates")
	}

	var days []time.Time
	for _, s := range strings.Split(dates, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return fmt.Errorf("seed requires at least one date")
	}

	spec := reconcile.SeedSpec{
		Username: user,
		TenantID: reconcile.TenantID(tenant),
		Dates:    days,
		ClockIn:  reconcile.DefaultClockIn,
		ClockOut: reconcile.DefaultClockOut,
		WorkMode: reconcile.ModeOffice,
		Notes:    "Seeded record",
	}
	if randomize {
		earliest := days[0]
		for _, d := range days {
			if d.Before(earliest) {
				earliest = d
			}
		}
		spec.RandomizeFrom = &earliest
		spec.RandomWindow = 45 * time.Minute
		spec.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	result, err := reconcile.SeedRecords(ctx, store, capacity, spec)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d records for %s/%s (%d already present, skipped)\n",
		result.Created, user, tenant, result.Skipped)
	return nil
}

func runPurge(ctx context.Context, store *sqlite.Store, capacity int, user, tenant string) error {
	if user == "" || tenant == "" {
		return fmt.Errorf("purge requires -user and -tenant")
	}

	result, err := reconcile.PurgeBroken(ctx, store, capacity, user, reconcile.TenantID(tenant))
	if err != nil {
		return err
	}

	fmt.Printf("Purged %d broken records for %s/%s (%d healthy records kept)\n",
		result.Deleted, user, tenant, result.Kept)
	return nil
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -from %q: %w", fromStr, err)
		}
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -to %q: %w", toStr, err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("-to precedes -from")
	}
	return from, to, nil
}
