/*
Package sqlite provides the SQLite-backed implementation of the ledger
store and directory service.

PURPOSE:
  Implements reconcile.LedgerStore and reconcile.DirectoryService on a
  single SQLite database. The same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  users:               Directory mirror (username, tenant, display, role)
  attendance_records:  The ledger

WRITE PATH:
  ApplyBatch is the only ledger mutation entry point. Each group commits
  in ONE database transaction: all-or-nothing. Groups above the mutation
  ceiling are rejected before the transaction starts. Record ids are
  minted here (uuid) on create - the store is the sole id authority.

INDEXES:
  idx_records_user_tenant_date: Composite-key lookups (hot path)
  idx_records_date:             Window range queries

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus WAL mode so readers don't
  block the single writer.

USAGE:
  st, err := sqlite.New("./data/attendance.db")
  if err != nil { log.Fatal(err) }
  defer st.Close()
  report, err := reconcile.Run(ctx, reconcile.Config{Directory: st, Store: st, ...})

SEE ALSO:
  - reconcile/store/memory.go: In-memory implementation for testing
  - reconcile/store.go: Interface contracts
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/reconcile"
)

// Store implements the ledger store and directory service on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Directory mirror
	CREATE TABLE IF NOT EXISTS users (
		username TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		display_name TEXT,
		role TEXT,
		PRIMARY KEY (username, tenant_id)
	);

	-- Attendance ledger. The primary key is a synthetic id; the natural
	-- key (username, tenant_id, date) is NOT unique at the schema level,
	-- which is exactly why the auditor exists.
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		clock_in TEXT,
		clock_out TEXT,
		work_mode TEXT,
		location TEXT,
		total_hours TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_user_tenant_date
		ON attendance_records(username, tenant_id, date);
	CREATE INDEX IF NOT EXISTS idx_records_date
		ON attendance_records(date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIRECTORY SERVICE (reconcile.DirectoryService interface)
// =============================================================================

// ListUsers returns the full directory in one read.
func (s *Store) ListUsers(ctx context.Context) ([]reconcile.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT username, tenant_id, display_name, role FROM users ORDER BY tenant_id, username")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []reconcile.User
	for rows.Next() {
		var u reconcile.User
		var display, role sql.NullString
		if err := rows.Scan(&u.Username, &u.TenantID, &display, &role); err != nil {
			return nil, err
		}
		u.DisplayName = display.String
		u.Role = role.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveUser upserts a directory entry (provisioning mirror, not part of the
// reconciliation write path).
func (s *Store) SaveUser(ctx context.Context, u reconcile.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, tenant_id, display_name, role)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(username, tenant_id) DO UPDATE SET
			display_name = excluded.display_name,
			role = excluded.role
	`, u.Username, u.TenantID, u.DisplayName, u.Role)
	return err
}

// =============================================================================
// LEDGER STORE (reconcile.LedgerStore interface)
// =============================================================================

const recordColumns = `id, username, tenant_id, date, status, clock_in, clock_out,
	work_mode, location, total_hours, notes, created_at, updated_at`

// QueryRange returns records with date in [from, to], closed interval on
// day-normalized bounds.
func (s *Store) QueryRange(ctx context.Context, from, to time.Time) ([]reconcile.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, username ASC
	`
	return s.queryRecords(ctx, query,
		reconcile.DayOf(from).Format("2006-01-02"),
		reconcile.DayOf(to).Format("2006-01-02"))
}

// QueryByUser returns all records for one (username, tenant) pair.
func (s *Store) QueryByUser(ctx context.Context, username string, tenant reconcile.TenantID) ([]reconcile.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE username = ? AND tenant_id = ?
		ORDER BY date ASC
	`
	return s.queryRecords(ctx, query, username, tenant)
}

// AllRecords returns the entire ledger (auditor scan).
func (s *Store) AllRecords(ctx context.Context) ([]reconcile.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		ORDER BY date ASC, username ASC
	`
	return s.queryRecords(ctx, query)
}

// ApplyBatch applies one group atomically in a single SQL transaction.
// Rejects groups above the mutation ceiling before touching the database.
func (s *Store) ApplyBatch(ctx context.Context, intents []reconcile.WriteIntent) error {
	if len(intents) == 0 {
		return nil
	}
	if len(intents) > reconcile.MutationCeiling {
		return reconcile.ErrBatchTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, intent := range intents {
		if err := s.applyIntent(ctx, tx, intent); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) applyIntent(ctx context.Context, tx *sql.Tx, intent reconcile.WriteIntent) error {
	rec := intent.Record
	now := time.Now().UTC().Format(time.RFC3339)

	switch intent.Op {
	case reconcile.OpCreate:
		id := uuid.NewString()
		createdAt := now
		if !rec.CreatedAt.IsZero() {
			createdAt = rec.CreatedAt.UTC().Format(time.RFC3339)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records
			(id, username, tenant_id, date, status, clock_in, clock_out,
			 work_mode, location, total_hours, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, rec.Username, rec.TenantID,
			reconcile.DayOf(rec.Date).Format("2006-01-02"),
			rec.Status, rec.ClockIn, rec.ClockOut, rec.WorkMode, rec.Location,
			rec.TotalHours.String(), rec.Notes, createdAt, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}
		return nil

	case reconcile.OpUpdate:
		res, err := tx.ExecContext(ctx, `
			UPDATE attendance_records SET
				status = ?, clock_in = ?, clock_out = ?, work_mode = ?,
				location = ?, total_hours = ?, notes = ?, updated_at = ?
			WHERE id = ?
		`,
			rec.Status, rec.ClockIn, rec.ClockOut, rec.WorkMode,
			rec.Location, rec.TotalHours.String(), rec.Notes, now, rec.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update record %s: %w", rec.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update: unknown record id %q", rec.ID)
		}
		return nil

	case reconcile.OpDelete:
		_, err := tx.ExecContext(ctx,
			"DELETE FROM attendance_records WHERE id = ?", rec.ID)
		if err != nil {
			return fmt.Errorf("failed to delete record %s: %w", rec.ID, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown write op %q", intent.Op)
	}
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]reconcile.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []reconcile.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (reconcile.AttendanceRecord, error) {
	var (
		rec        reconcile.AttendanceRecord
		date       string
		clockIn    sql.NullString
		clockOut   sql.NullString
		workMode   sql.NullString
		location   sql.NullString
		totalHours sql.NullString
		notes      sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := rows.Scan(
		&rec.ID, &rec.Username, &rec.TenantID, &date, &rec.Status,
		&clockIn, &clockOut, &workMode, &location, &totalHours, &notes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	// A blank date column round-trips as the zero time, which is what the
	// purge operation looks for.
	if date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			rec.Date = t
		}
	}
	rec.ClockIn = clockIn.String
	rec.ClockOut = clockOut.String
	rec.WorkMode = reconcile.WorkMode(workMode.String)
	rec.Location = location.String
	rec.Notes = notes.String
	if totalHours.Valid && totalHours.String != "" {
		if d, err := decimal.NewFromString(totalHours.String); err == nil {
			rec.TotalHours = d
		}
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"attendance_records", "users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// InsertRaw inserts a record with an explicit id, bypassing the batch
// path. Used by tests and demo seeding to fabricate pre-existing (and
// deliberately corrupt) ledger states.
func (s *Store) InsertRaw(ctx context.Context, rec reconcile.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := string(rec.ID)
	if id == "" {
		id = uuid.NewString()
	}
	dateStr := ""
	if !rec.Date.IsZero() {
		dateStr = reconcile.DayOf(rec.Date).Format("2006-01-02")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records
		(id, username, tenant_id, date, status, clock_in, clock_out,
		 work_mode, location, total_hours, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, rec.Username, rec.TenantID, dateStr, rec.Status,
		rec.ClockIn, rec.ClockOut, rec.WorkMode, rec.Location,
		rec.TotalHours.String(), rec.Notes, now, now,
	)
	return err
}
