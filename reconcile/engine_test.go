package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/reconcile"
	"github.com/warp/attendance-engine/reconcile/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
	}
}

func testEngine() *reconcile.Engine {
	return &reconcile.Engine{Now: fixedClock()}
}

func tenant1Users() []reconcile.User {
	return []reconcile.User{
		{Username: "alice", TenantID: "T1", DisplayName: "Alice"},
		{Username: "bob", TenantID: "T1", DisplayName: "Bob"},
	}
}

func indexOver(t *testing.T, ledger *store.Memory, from, to time.Time) *reconcile.LedgerIndex {
	t.Helper()
	index, err := reconcile.BuildLedgerIndex(context.Background(), ledger, from, to)
	require.NoError(t, err)
	return index
}

// =============================================================================
// CREATE PATH
// =============================================================================

func TestEngine_MissingRecords_AreCreated(t *testing.T) {
	// GIVEN: Republic Day 2025-01-26, two T1 users, an empty ledger
	// WHEN: Reconciling
	// THEN: One create intent per user with policy defaults

	ledger := store.NewMemory()
	jan26 := day(2025, time.January, 26)
	dates := []reconcile.PolicyDate{{Date: jan26, Reason: "Republic Day", Kind: reconcile.KindNamedHoliday}}

	intents, report := testEngine().Reconcile(context.Background(), dates, tenant1Users(),
		indexOver(t, ledger, jan26, jan26))

	require.Len(t, intents, 2)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, report.IssuesFound())
	assert.Equal(t, 1, report.DatesChecked)
	assert.Equal(t, 2, report.UsersChecked)

	for i, username := range []string{"alice", "bob"} {
		rec := intents[i].Record
		assert.Equal(t, reconcile.OpCreate, intents[i].Op)
		assert.Equal(t, username, rec.Username)
		assert.Equal(t, reconcile.TenantID("T1"), rec.TenantID)
		assert.True(t, rec.Date.Equal(jan26))
		assert.Equal(t, reconcile.StatusPresent, rec.Status)
		assert.Equal(t, reconcile.DefaultClockIn, rec.ClockIn)
		assert.Equal(t, reconcile.DefaultClockOut, rec.ClockOut)
		assert.Equal(t, reconcile.ModeOffice, rec.WorkMode)
		assert.Contains(t, rec.Notes, "Republic Day")
		assert.True(t, rec.TotalHours.Equal(decimal.RequireFromString("8.5")),
			"09:00 to 17:30 is 8.5 hours, got %s", rec.TotalHours)
	}
}

// =============================================================================
// CORRECTION PATH
// =============================================================================

func TestEngine_AbsentRecord_UpgradedToPresent(t *testing.T) {
	// GIVEN: carol/T2 has an absent record on a Sunday with empty clocks
	// WHEN: Reconciling
	// THEN: One update intent, present, with defaults filling the gaps

	ledger := store.NewMemory()
	jan5 := day(2025, time.January, 5)
	id := ledger.Put(reconcile.AttendanceRecord{
		Username: "carol", TenantID: "T2", Date: jan5,
		Status: reconcile.StatusAbsent,
	})

	dates := []reconcile.PolicyDate{{Date: jan5, Reason: "Weekly off (Sunday)", Kind: reconcile.KindWeeklyRest}}
	users := []reconcile.User{{Username: "carol", TenantID: "T2"}}

	intents, report := testEngine().Reconcile(context.Background(), dates, users,
		indexOver(t, ledger, jan5, jan5))

	require.Len(t, intents, 1)
	assert.Equal(t, 1, report.Corrected)
	assert.Equal(t, 0, report.Created)

	rec := intents[0].Record
	assert.Equal(t, reconcile.OpUpdate, intents[0].Op)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, reconcile.StatusPresent, rec.Status)
	assert.Equal(t, reconcile.DefaultClockIn, rec.ClockIn)
	assert.Equal(t, reconcile.DefaultClockOut, rec.ClockOut)
	assert.Equal(t, reconcile.ModeOffice, rec.WorkMode)
	assert.Contains(t, rec.Notes, "Weekly off (Sunday)")
}

func TestEngine_Correction_PreservesPopulatedFields(t *testing.T) {
	// GIVEN: An absent record that already carries clocks, mode, and notes
	// WHEN: Correcting it
	// THEN: Only the status changes; populated fields keep their values

	ledger := store.NewMemory()
	jan5 := day(2025, time.January, 5)
	ledger.Put(reconcile.AttendanceRecord{
		Username: "carol", TenantID: "T2", Date: jan5,
		Status:   reconcile.StatusAbsent,
		ClockIn:  "10:15",
		ClockOut: "16:00",
		WorkMode: reconcile.ModeRemote,
		Location: "Pune",
		Notes:    "marked by import job",
	})

	dates := []reconcile.PolicyDate{{Date: jan5, Reason: "Weekly off (Sunday)", Kind: reconcile.KindWeeklyRest}}
	users := []reconcile.User{{Username: "carol", TenantID: "T2"}}

	intents, _ := testEngine().Reconcile(context.Background(), dates, users,
		indexOver(t, ledger, jan5, jan5))

	require.Len(t, intents, 1)
	rec := intents[0].Record
	assert.Equal(t, reconcile.StatusPresent, rec.Status)
	assert.Equal(t, "10:15", rec.ClockIn)
	assert.Equal(t, "16:00", rec.ClockOut)
	assert.Equal(t, reconcile.ModeRemote, rec.WorkMode)
	assert.Equal(t, "Pune", rec.Location)
	assert.Equal(t, "marked by import job", rec.Notes, "existing notes must not be overwritten")
}

// =============================================================================
// NO-OP PATHS
// =============================================================================

func TestEngine_PresentRecord_NoIntent(t *testing.T) {
	// GIVEN: A record already marked present on the policy date
	// WHEN: Reconciling
	// THEN: No intent; counted as already correct

	ledger := store.NewMemory()
	jan5 := day(2025, time.January, 5)
	ledger.Put(reconcile.AttendanceRecord{
		Username: "alice", TenantID: "T1", Date: jan5,
		Status: reconcile.StatusPresent, ClockIn: "09:00", ClockOut: "17:30",
	})

	dates := []reconcile.PolicyDate{{Date: jan5, Reason: "Weekly off (Sunday)", Kind: reconcile.KindWeeklyRest}}
	users := []reconcile.User{{Username: "alice", TenantID: "T1"}}

	intents, report := testEngine().Reconcile(context.Background(), dates, users,
		indexOver(t, ledger, jan5, jan5))

	assert.Empty(t, intents)
	assert.Equal(t, 1, report.AlreadyCorrect)
	assert.Equal(t, 0, report.IssuesFound())
}

func TestEngine_ExplicitStatus_LeftAsIs(t *testing.T) {
	// GIVEN: Records with leave and half-day statuses on the policy date
	// WHEN: Reconciling
	// THEN: No intents; an explicit status is never downgraded

	ledger := store.NewMemory()
	jan5 := day(2025, time.January, 5)
	ledger.Put(reconcile.AttendanceRecord{
		Username: "alice", TenantID: "T1", Date: jan5, Status: reconcile.StatusLeave,
	})
	ledger.Put(reconcile.AttendanceRecord{
		Username: "bob", TenantID: "T1", Date: jan5, Status: reconcile.StatusHalfDay,
	})

	dates := []reconcile.PolicyDate{{Date: jan5, Reason: "Weekly off (Sunday)", Kind: reconcile.KindWeeklyRest}}

	intents, report := testEngine().Reconcile(context.Background(), dates, tenant1Users(),
		indexOver(t, ledger, jan5, jan5))

	assert.Empty(t, intents)
	assert.Equal(t, 2, report.LeftAsIs)
}

// =============================================================================
// TENANT ISOLATION
// =============================================================================

func TestEngine_SameUsernameDifferentTenants_Independent(t *testing.T) {
	// GIVEN: "alice" exists in T1 (has a present record) and T2 (has none)
	// WHEN: Reconciling both users
	// THEN: Only T2's alice gets a create; the T1 record never shadows her

	ledger := store.NewMemory()
	jan5 := day(2025, time.January, 5)
	ledger.Put(reconcile.AttendanceRecord{
		Username: "alice", TenantID: "T1", Date: jan5, Status: reconcile.StatusPresent,
	})

	dates := []reconcile.PolicyDate{{Date: jan5, Reason: "Weekly off (Sunday)", Kind: reconcile.KindWeeklyRest}}
	users := []reconcile.User{
		{Username: "alice", TenantID: "T1"},
		{Username: "alice", TenantID: "T2"},
	}

	intents, report := testEngine().Reconcile(context.Background(), dates, users,
		indexOver(t, ledger, jan5, jan5))

	require.Len(t, intents, 1)
	assert.Equal(t, reconcile.TenantID("T2"), intents[0].Record.TenantID)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.AlreadyCorrect)
}

// =============================================================================
// ERROR ISOLATION
// =============================================================================

func TestEngine_MalformedUser_SkippedNotFatal(t *testing.T) {
	// GIVEN: A user with an empty tenant among valid users
	// WHEN: Reconciling
	// THEN: The bad pair is skipped; the valid users still get intents

	ledger := store.NewMemory()
	jan5 := day(2025, time.January, 5)
	dates := []reconcile.PolicyDate{{Date: jan5, Reason: "Weekly off (Sunday)", Kind: reconcile.KindWeeklyRest}}
	users := []reconcile.User{
		{Username: "alice", TenantID: "T1"},
		{Username: "broken", TenantID: ""},
		{Username: "bob", TenantID: "T1"},
	}

	intents, report := testEngine().Reconcile(context.Background(), dates, users,
		indexOver(t, ledger, jan5, jan5))

	assert.Len(t, intents, 2)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Created)
}

// =============================================================================
// IDEMPOTENCY
// =============================================================================

func TestEngine_SecondRun_EmitsNothing(t *testing.T) {
	// GIVEN: A first run's intents committed to the ledger
	// WHEN: Running again over the same window
	// THEN: Zero intents; everything is already correct

	ledger := store.NewMemory()
	ctx := context.Background()
	jan26 := day(2025, time.January, 26)
	dates := []reconcile.PolicyDate{{Date: jan26, Reason: "Republic Day", Kind: reconcile.KindNamedHoliday}}

	intents, _ := testEngine().Reconcile(ctx, dates, tenant1Users(), indexOver(t, ledger, jan26, jan26))
	require.Len(t, intents, 2)
	require.NoError(t, ledger.ApplyBatch(ctx, intents))

	intents, report := testEngine().Reconcile(ctx, dates, tenant1Users(), indexOver(t, ledger, jan26, jan26))

	assert.Empty(t, intents, "second run must be a no-op")
	assert.Equal(t, 2, report.AlreadyCorrect)
	assert.Equal(t, 0, report.IssuesFound())
}
