package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/attendance-engine/reconcile"
	"github.com/warp/attendance-engine/reconcile/store"
)

func TestBuildLedgerIndex_WindowFiltering(t *testing.T) {
	ledger := store.NewMemory()
	ledger.Put(reconcile.AttendanceRecord{Username: "alice", TenantID: "T1", Date: day(2025, time.January, 4)})
	ledger.Put(reconcile.AttendanceRecord{Username: "alice", TenantID: "T1", Date: day(2025, time.January, 5)})
	ledger.Put(reconcile.AttendanceRecord{Username: "alice", TenantID: "T1", Date: day(2025, time.January, 12)})
	ledger.Put(reconcile.AttendanceRecord{Username: "alice", TenantID: "T1", Date: day(2025, time.January, 13)})

	index, err := reconcile.BuildLedgerIndex(context.Background(), ledger,
		day(2025, time.January, 5), day(2025, time.January, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Closed interval: both boundary days included, outside days excluded.
	if index.Size() != 2 {
		t.Fatalf("expected 2 indexed records, got %d", index.Size())
	}
	if _, ok := index.Lookup("alice", "T1", day(2025, time.January, 5)); !ok {
		t.Error("boundary start day missing from index")
	}
	if _, ok := index.Lookup("alice", "T1", day(2025, time.January, 12)); !ok {
		t.Error("boundary end day missing from index")
	}
	if _, ok := index.Lookup("alice", "T1", day(2025, time.January, 4)); ok {
		t.Error("day before window must not be indexed")
	}
}

func TestBuildLedgerIndex_CompositeKeyIsolation(t *testing.T) {
	ledger := store.NewMemory()
	jan5 := day(2025, time.January, 5)
	ledger.Put(reconcile.AttendanceRecord{Username: "alice", TenantID: "T1", Date: jan5, Location: "HQ"})

	index, err := reconcile.BuildLedgerIndex(context.Background(), ledger, jan5, jan5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := index.Lookup("alice", "T2", jan5); ok {
		t.Error("lookup must not cross tenants for the same username")
	}
	if _, ok := index.Lookup("bob", "T1", jan5); ok {
		t.Error("lookup must not cross usernames within a tenant")
	}
	rec, ok := index.Lookup("alice", "T1", jan5)
	if !ok || rec.Location != "HQ" {
		t.Error("full composite key lookup should return the record")
	}
}

func TestBuildLedgerIndex_DuplicatesFirstWins(t *testing.T) {
	ledger := store.NewMemory()
	jan5 := day(2025, time.January, 5)
	// Two records for the same natural key. The memory store returns them
	// sorted by id, so rec-1 is seen first.
	ledger.Put(reconcile.AttendanceRecord{Username: "alice", TenantID: "T1", Date: jan5, Notes: "first"})
	ledger.Put(reconcile.AttendanceRecord{Username: "alice", TenantID: "T1", Date: jan5, Notes: "second"})

	index, err := reconcile.BuildLedgerIndex(context.Background(), ledger, jan5, jan5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if index.Duplicates != 1 {
		t.Fatalf("expected 1 counted duplicate, got %d", index.Duplicates)
	}
	rec, ok := index.Lookup("alice", "T1", jan5)
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Notes != "first" {
		t.Errorf("expected first record to win, got %q", rec.Notes)
	}
}

func TestBuildLedgerIndex_QueryFailureIsFatal(t *testing.T) {
	failing := &failingStore{err: errors.New("connection reset")}

	_, err := reconcile.BuildLedgerIndex(context.Background(), failing,
		day(2025, time.January, 1), day(2025, time.January, 31))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, reconcile.ErrLedgerQueryFailed) {
		t.Errorf("expected ErrLedgerQueryFailed, got %v", err)
	}
	if !reconcile.IsFatal(err) {
		t.Error("query failure must be fatal")
	}
}

// failingStore fails every operation with a fixed error.
type failingStore struct {
	err error
}

func (f *failingStore) QueryRange(context.Context, time.Time, time.Time) ([]reconcile.AttendanceRecord, error) {
	return nil, f.err
}

func (f *failingStore) QueryByUser(context.Context, string, reconcile.TenantID) ([]reconcile.AttendanceRecord, error) {
	return nil, f.err
}

func (f *failingStore) AllRecords(context.Context) ([]reconcile.AttendanceRecord, error) {
	return nil, f.err
}

func (f *failingStore) ApplyBatch(context.Context, []reconcile.WriteIntent) error {
	return f.err
}
