// Package store provides in-memory LedgerStore and DirectoryService
// implementations for testing and development.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/reconcile"
)

// =============================================================================
// MEMORY LEDGER - In-memory LedgerStore (for testing/dev)
// =============================================================================

// Memory is an in-memory attendance ledger. It mimics the production
// store's contract: synthetic ids assigned on create, a hard mutation
// ceiling per atomic submission, all-or-nothing group semantics.
type Memory struct {
	mu      sync.RWMutex
	records map[reconcile.RecordID]reconcile.AttendanceRecord
	nextID  int

	// Writes counts ApplyBatch calls that contained at least one
	// operation. Tests use it to prove auditor purity.
	Writes int

	// FailAfter, when > 0, makes ApplyBatch fail once that many groups
	// have been committed. Simulates a mid-run commit failure.
	FailAfter int
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{records: make(map[reconcile.RecordID]reconcile.AttendanceRecord)}
}

// Put inserts a record directly, bypassing the batch path. Test seeding
// only; assigns an id when the record has none.
func (m *Memory) Put(rec reconcile.AttendanceRecord) reconcile.RecordID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		m.nextID++
		rec.ID = reconcile.RecordID(fmt.Sprintf("rec-%d", m.nextID))
	}
	m.records[rec.ID] = rec
	return rec.ID
}

// Get returns a record by id.
func (m *Memory) Get(id reconcile.RecordID) (reconcile.AttendanceRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// QueryRange returns records whose day falls in [from, to], closed interval.
func (m *Memory) QueryRange(_ context.Context, from, to time.Time) ([]reconcile.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to = reconcile.DayOf(from), reconcile.DayOf(to)
	var result []reconcile.AttendanceRecord
	for _, rec := range m.records {
		day := rec.Day()
		if !day.Before(from) && !day.After(to) {
			result = append(result, rec)
		}
	}
	sortRecords(result)
	return result, nil
}

// QueryByUser returns all records for one (username, tenant) pair.
func (m *Memory) QueryByUser(_ context.Context, username string, tenant reconcile.TenantID) ([]reconcile.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []reconcile.AttendanceRecord
	for _, rec := range m.records {
		if rec.Username == username && rec.TenantID == tenant {
			result = append(result, rec)
		}
	}
	sortRecords(result)
	return result, nil
}

// AllRecords returns the entire ledger.
func (m *Memory) AllRecords(_ context.Context) ([]reconcile.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]reconcile.AttendanceRecord, 0, len(m.records))
	for _, rec := range m.records {
		result = append(result, rec)
	}
	sortRecords(result)
	return result, nil
}

// ApplyBatch applies a group atomically: the group is validated in full
// before any record map mutation happens.
func (m *Memory) ApplyBatch(_ context.Context, intents []reconcile.WriteIntent) error {
	if len(intents) == 0 {
		return nil
	}
	if len(intents) > reconcile.MutationCeiling {
		return reconcile.ErrBatchTooLarge
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAfter > 0 && m.Writes >= m.FailAfter {
		return fmt.Errorf("simulated commit failure")
	}

	// Validate first (atomic check), then apply (atomic write).
	for _, intent := range intents {
		switch intent.Op {
		case reconcile.OpCreate:
		case reconcile.OpUpdate, reconcile.OpDelete:
			if _, ok := m.records[intent.Record.ID]; !ok {
				return fmt.Errorf("%s: unknown record id %q", intent.Op, intent.Record.ID)
			}
		default:
			return fmt.Errorf("unknown write op %q", intent.Op)
		}
	}

	for _, intent := range intents {
		switch intent.Op {
		case reconcile.OpCreate:
			rec := intent.Record
			m.nextID++
			rec.ID = reconcile.RecordID(fmt.Sprintf("rec-%d", m.nextID))
			rec.Date = reconcile.DayOf(rec.Date)
			m.records[rec.ID] = rec
		case reconcile.OpUpdate:
			rec := intent.Record
			rec.Date = reconcile.DayOf(rec.Date)
			m.records[rec.ID] = rec
		case reconcile.OpDelete:
			delete(m.records, intent.Record.ID)
		}
	}

	m.Writes++
	return nil
}

func sortRecords(records []reconcile.AttendanceRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		if records[i].Username != records[j].Username {
			return records[i].Username < records[j].Username
		}
		return records[i].ID < records[j].ID
	})
}

// =============================================================================
// MEMORY DIRECTORY - In-memory DirectoryService
// =============================================================================

// Directory is a fixed in-memory user directory. Err, when set, simulates
// an unavailable directory service.
type Directory struct {
	Users []reconcile.User
	Err   error
}

// ListUsers returns the configured users in insertion order.
func (d *Directory) ListUsers(_ context.Context) ([]reconcile.User, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Users, nil
}
