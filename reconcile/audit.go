/*
audit.go - Tenant-consistency sweep

PURPOSE:
  An independent, read-only pass over the ENTIRE ledger (not windowed)
  comparing each record's stored tenant identity against the directory's
  canonical tenant for that username, and flagging ledger usernames that
  have no directory entry at all.

DETECTION, NOT REPAIR:
  The auditor never mutates the ledger. Tenant identity is a strict
  partitioning invariant; an automatic tenant reassignment risks leaking
  attendance data across organizational boundaries, so correction is a
  deliberate, reviewed action taken elsewhere. The auditor's job is to make
  violations visible.

SEE ALSO:
  - directory.go: Source of canonical tenant identity
  - api/: Exposes the report over HTTP
*/
package reconcile

import (
	"context"
	"log"
	"sort"
	"time"
)

// TenantMismatch is a ledger record whose stored tenant disagrees with the
// directory's canonical tenant for its username.
type TenantMismatch struct {
	RecordID        RecordID
	Username        string
	StoredTenant    TenantID
	CanonicalTenant TenantID
	Date            time.Time
}

// AuditReport is the result of one full-ledger sweep.
type AuditReport struct {
	RecordsScanned int
	Mismatched     []TenantMismatch
	Orphaned       []string // usernames with no directory entry, deduplicated, sorted
}

// Clean reports whether the sweep found nothing wrong.
func (r *AuditReport) Clean() bool {
	return len(r.Mismatched) == 0 && len(r.Orphaned) == 0
}

// Auditor runs the tenant-consistency sweep.
type Auditor struct {
	Store LedgerStore
}

// Audit scans the whole ledger against the directory snapshot. Read-only:
// it issues zero write operations regardless of what it finds. A failed
// ledger scan is fatal (LedgerQueryError).
func (a *Auditor) Audit(ctx context.Context, snap *DirectorySnapshot) (*AuditReport, error) {
	records, err := a.Store.AllRecords(ctx)
	if err != nil {
		return nil, &LedgerQueryError{Cause: err}
	}

	report := &AuditReport{RecordsScanned: len(records)}
	orphans := make(map[string]bool)

	for _, rec := range records {
		canonical, known := snap.Canonical(rec.Username)
		if !known {
			orphans[rec.Username] = true
			continue
		}
		if rec.TenantID != canonical {
			report.Mismatched = append(report.Mismatched, TenantMismatch{
				RecordID:        rec.ID,
				Username:        rec.Username,
				StoredTenant:    rec.TenantID,
				CanonicalTenant: canonical,
				Date:            rec.Day(),
			})
		}
	}

	for name := range orphans {
		report.Orphaned = append(report.Orphaned, name)
	}
	sort.Strings(report.Orphaned)

	log.Printf("[Auditor] scanned %d records: %d tenant mismatches, %d orphaned usernames",
		report.RecordsScanned, len(report.Mismatched), len(report.Orphaned))
	return report, nil
}
