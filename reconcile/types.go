/*
Package reconcile contains the attendance ledger reconciliation engine.

PURPOSE:
  This package walks a date range for every user in every tenant, decides
  the policy-correct attendance state for each (user, tenant, date) triple,
  compares it against what the ledger store has persisted, and repairs
  divergences through bounded atomic write groups. It also audits the
  ledger for tenant-ownership corruption and orphaned records.

KEY CONCEPTS IN THIS FILE (types.go):
  - TenantID/RecordID: Type-safe identifiers
  - User: Directory entry (username is the natural key)
  - AttendanceRecord: A persisted ledger entry
  - PolicyDate: A rest date on which "present" is the policy default
  - WriteIntent: A desired mutation, consumed by the BatchWriter
  - RecordKey: The (username, tenantId) composite lookup key

DESIGN PRINCIPLES:
  1. Tenant partitioning: every lookup carries the full composite key
     (username, tenantId, date), never date alone
  2. Precision: decimal.Decimal for worked hours, no floating point
  3. Separation: intents are ephemeral; only the BatchWriter mutates
  4. Detection over repair: tenant violations are reported, never
     silently reassigned

USAGE:
  dates := reconcile.ResolvePolicyDates(start, end, holidays, time.Sunday)
  snap, _ := reconcile.LoadDirectory(ctx, directory)
  index, _ := reconcile.BuildLedgerIndex(ctx, store, start, end)
  intents, report := engine.Reconcile(ctx, dates, snap.Users, index)

SEE ALSO:
  - calendar.go: Policy calendar resolution
  - engine.go: The decision procedure per (date, user) pair
  - batch.go: Bounded atomic write groups
  - audit.go: Tenant-consistency sweep
*/
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// TenantID is an opaque organizational partition identifier. Tenants are
// owned by an external provisioning process; this subsystem only reads them.
type TenantID string

// RecordID is the store-assigned synthetic id of a ledger record. The
// natural key for reconciliation is (username, tenantId, date); duplicates
// of the natural key are possible in the store and are an error condition
// this engine must never introduce.
type RecordID string

// =============================================================================
// USER - Directory entry
// =============================================================================

// User is a directory entry. Username is unique within a tenant and is
// treated as a natural key across the whole directory. Loaded fresh at the
// start of every run; never mutated here.
type User struct {
	Username    string
	TenantID    TenantID
	DisplayName string
	Role        string
}

// =============================================================================
// ATTENDANCE RECORD - The ledger entry
// =============================================================================

// AttendanceStatus is an open string set. The engine only distinguishes
// absent, present, and "anything else" (left as-is).
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLeave   AttendanceStatus = "leave"
	StatusHalfDay AttendanceStatus = "half-day"
)

// WorkMode describes where the user worked.
type WorkMode string

const (
	ModeOffice WorkMode = "office"
	ModeRemote WorkMode = "remote"
)

// AttendanceRecord is a persisted ledger entry. Date is a calendar day
// stored as a point-in-time value normalized to the UTC day boundary.
// ClockIn/ClockOut are "HH:MM" time-of-day strings; empty means unset.
type AttendanceRecord struct {
	ID         RecordID
	Username   string
	TenantID   TenantID
	Date       time.Time
	Status     AttendanceStatus
	ClockIn    string
	ClockOut   string
	WorkMode   WorkMode
	Location   string
	TotalHours decimal.Decimal
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Day returns the record date normalized to the UTC day boundary.
func (r AttendanceRecord) Day() time.Time { return DayOf(r.Date) }

// Key returns the tenant-scoped composite lookup key.
func (r AttendanceRecord) Key() RecordKey {
	return RecordKey{Username: r.Username, TenantID: r.TenantID}
}

// RecordKey is the (username, tenantId) composite key. Lookups during
// reconciliation go through this key plus the normalized day, never the
// date alone, so same-date records of other tenants can never collide.
type RecordKey struct {
	Username string
	TenantID TenantID
}

// =============================================================================
// POLICY DATE - Ephemeral, computed per run, never persisted
// =============================================================================

// PolicyDateKind distinguishes why a date is a rest date.
type PolicyDateKind string

const (
	KindNamedHoliday PolicyDateKind = "named-holiday"
	KindWeeklyRest   PolicyDateKind = "weekly-rest"
)

// PolicyDate is a date on which the default expected status is "present
// without penalty". Reason is the human-readable audit string (the holiday
// name, or the weekday name for weekly rest).
type PolicyDate struct {
	Date   time.Time
	Reason string
	Kind   PolicyDateKind
}

// Holiday is a named calendar holiday from the compiled-in policy list.
type Holiday struct {
	Date time.Time
	Name string
}

// =============================================================================
// WRITE INTENT - Desired mutation, consumed by the BatchWriter
// =============================================================================

// WriteOp enumerates the mutations the ledger store accepts.
type WriteOp string

const (
	OpCreate WriteOp = "create"
	OpUpdate WriteOp = "update"
	OpDelete WriteOp = "delete"
)

// WriteIntent is an ephemeral desired-state mutation. The engine emits
// create/update intents; the purge manual operation emits delete intents.
// For update and delete, Record carries the store-native reference (ID).
type WriteIntent struct {
	Op     WriteOp
	Record AttendanceRecord
}

// =============================================================================
// POLICY DEFAULTS
// =============================================================================

// Defaults written when a rest-date record is created or an absent record
// is corrected. These encode the business rule "nobody is penalized for
// rest days" - a policy default, not a guess about actual attendance.
const (
	DefaultClockIn  = "09:00"
	DefaultClockOut = "17:30"
)

// DayOf normalizes a timestamp to its UTC day boundary.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two timestamps fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}
