/*
engine.go - The reconciliation decision procedure

PURPOSE:
  For each (policyDate, user) pair in the cartesian product of the resolved
  policy calendar and the directory snapshot, decide one of
  {no-op, create, correct} and emit a desired-state WriteIntent when action
  is needed.

DECISION TABLE (per pair, looked up by full composite key):
  no record            -> CREATE, status present, default clock-in/out,
                          office, notes "<reason> - auto marked present"
  status == absent     -> UPDATE to present; only EMPTY fields receive
                          defaults; notes only written if previously empty
  status == present    -> no-op (already correct)
  anything else        -> no-op (left as-is); the engine never downgrades
                          an explicit non-default status such as leave

IDEMPOTENCY:
  Running the engine twice over the same window with no external changes
  produces zero intents the second time: creates become "already correct"
  present records, corrections become present records.

FAILURE SEMANTICS:
  A per-pair evaluation failure is logged and counted as skipped; it never
  aborts the date. Structural failures (directory, index) abort upstream
  before the engine runs.

SEE ALSO:
  - calendar.go: Guarantees each date appears once (dedup tie-break)
  - batch.go: Flushes the emitted intents in bounded atomic groups
*/
package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RUN REPORT - Structured per-date and aggregate counts
// =============================================================================

// DateReport is the per-policy-date breakdown.
type DateReport struct {
	Date           time.Time
	Reason         string
	UsersChecked   int
	Created        int
	Corrected      int
	AlreadyCorrect int
	LeftAsIs       int
	Skipped        int
}

// RunReport aggregates a whole reconciliation run. Committed and
// Submissions are filled in by the runner after the batch writer flushes;
// they only ever reflect successfully committed groups.
type RunReport struct {
	WindowFrom, WindowTo time.Time

	DatesChecked   int
	UsersChecked   int
	Created        int
	Corrected      int
	AlreadyCorrect int
	LeftAsIs       int
	Skipped        int

	Dates []DateReport

	Committed   int
	Submissions int
}

// IssuesFound is the number of divergences detected (missing + incorrect).
func (r *RunReport) IssuesFound() int { return r.Created + r.Corrected }

// =============================================================================
// ENGINE
// =============================================================================

// Engine holds the injected clock so tests can pin record timestamps.
type Engine struct {
	Now func() time.Time
}

// NewEngine returns an engine on the wall clock.
func NewEngine() *Engine { return &Engine{Now: time.Now} }

// Reconcile walks policy dates in chronological order and users in
// directory order, emitting one intent per divergent (user, date) pair.
// Pure in-memory work against the index snapshot; per-pair errors are
// isolated into the Skipped count.
func (e *Engine) Reconcile(ctx context.Context, dates []PolicyDate, users []User, index *LedgerIndex) ([]WriteIntent, *RunReport) {
	report := &RunReport{WindowFrom: index.From, WindowTo: index.To}
	var intents []WriteIntent

	for _, pd := range dates {
		dr := DateReport{Date: pd.Date, Reason: pd.Reason}
		log.Printf("[Engine] %s (%s): checking %d users",
			pd.Date.Format("2006-01-02"), pd.Reason, len(users))

		for _, u := range users {
			dr.UsersChecked++

			intent, outcome, err := e.evaluate(pd, u, index)
			if err != nil {
				log.Printf("[Engine]   skip %s/%s: %v", u.Username, u.TenantID, err)
				dr.Skipped++
				continue
			}

			switch outcome {
			case outcomeCreate:
				log.Printf("[Engine]   create %s/%s: no record, marking present", u.Username, u.TenantID)
				dr.Created++
				intents = append(intents, *intent)
			case outcomeCorrect:
				log.Printf("[Engine]   correct %s/%s: absent -> present", u.Username, u.TenantID)
				dr.Corrected++
				intents = append(intents, *intent)
			case outcomeAlreadyCorrect:
				dr.AlreadyCorrect++
			case outcomeLeftAsIs:
				log.Printf("[Engine]   left as-is %s/%s: explicit status preserved", u.Username, u.TenantID)
				dr.LeftAsIs++
			}
		}

		report.Dates = append(report.Dates, dr)
		report.DatesChecked++
		report.UsersChecked += dr.UsersChecked
		report.Created += dr.Created
		report.Corrected += dr.Corrected
		report.AlreadyCorrect += dr.AlreadyCorrect
		report.LeftAsIs += dr.LeftAsIs
		report.Skipped += dr.Skipped
	}

	return intents, report
}

type outcome int

const (
	outcomeCreate outcome = iota
	outcomeCorrect
	outcomeAlreadyCorrect
	outcomeLeftAsIs
)

// evaluate decides the action for one (policyDate, user) pair.
func (e *Engine) evaluate(pd PolicyDate, u User, index *LedgerIndex) (*WriteIntent, outcome, error) {
	if u.Username == "" || u.TenantID == "" {
		return nil, 0, &RecordFieldError{
			Username: u.Username, TenantID: u.TenantID, Date: pd.Date,
			Field: "username/tenantId", Cause: ErrRecordField,
		}
	}

	rec, ok := index.Lookup(u.Username, u.TenantID, pd.Date)
	if !ok {
		intent := e.createIntent(pd, u)
		return &intent, outcomeCreate, nil
	}

	switch rec.Status {
	case StatusAbsent:
		if rec.ID == "" {
			return nil, 0, &RecordFieldError{
				Username: u.Username, TenantID: u.TenantID, Date: pd.Date,
				Field: "id", Cause: ErrRecordField,
			}
		}
		intent := e.correctIntent(pd, *rec)
		return &intent, outcomeCorrect, nil
	case StatusPresent:
		return nil, outcomeAlreadyCorrect, nil
	default:
		// leave, half-day, etc. An explicit non-default status is never
		// downgraded by policy reconciliation.
		return nil, outcomeLeftAsIs, nil
	}
}

// createIntent builds the policy-default record for a missing rest day.
func (e *Engine) createIntent(pd PolicyDate, u User) WriteIntent {
	now := e.Now().UTC()
	return WriteIntent{
		Op: OpCreate,
		Record: AttendanceRecord{
			Username:   u.Username,
			TenantID:   u.TenantID,
			Date:       pd.Date,
			Status:     StatusPresent,
			ClockIn:    DefaultClockIn,
			ClockOut:   DefaultClockOut,
			WorkMode:   ModeOffice,
			TotalHours: hoursBetween(DefaultClockIn, DefaultClockOut),
			Notes:      pd.Reason + " - auto marked present",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

// correctIntent upgrades an absent record to present, preserving every
// field the record already carries. Only empty fields receive defaults.
func (e *Engine) correctIntent(pd PolicyDate, rec AttendanceRecord) WriteIntent {
	rec.Status = StatusPresent
	if rec.ClockIn == "" {
		rec.ClockIn = DefaultClockIn
	}
	if rec.ClockOut == "" {
		rec.ClockOut = DefaultClockOut
	}
	if rec.WorkMode == "" {
		rec.WorkMode = ModeOffice
	}
	if rec.TotalHours.IsZero() {
		rec.TotalHours = hoursBetween(rec.ClockIn, rec.ClockOut)
	}
	if rec.Notes == "" {
		rec.Notes = pd.Reason + " - corrected to present"
	}
	rec.UpdatedAt = e.Now().UTC()
	return WriteIntent{Op: OpUpdate, Record: rec}
}

// hoursBetween computes worked hours from "HH:MM" clock strings.
// Returns zero on unparsable input rather than guessing.
func hoursBetween(clockIn, clockOut string) decimal.Decimal {
	in, err1 := time.Parse("15:04", clockIn)
	out, err2 := time.Parse("15:04", clockOut)
	if err1 != nil || err2 != nil || !out.After(in) {
		return decimal.Zero
	}
	minutes := out.Sub(in).Minutes()
	return decimal.NewFromFloat(minutes).Div(decimal.NewFromInt(60)).Round(2)
}
