/*
handlers.go - HTTP handlers for the reconciliation reporting surface

PURPOSE:
  Exposes the attendance reconciliation engine over REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  GET  /api/health       Liveness probe
  GET  /api/audit        Read-only tenant-consistency audit
  GET  /api/runs/latest  Report of the most recent reconciliation run
  POST /api/runs         Trigger a reconciliation run (optional window)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (directory + attendance ledger)
  - Calendar: Parsed holiday configuration and weekly rest day
  - Capacity: Batch writer capacity for triggered runs

  A mutex serializes triggered runs so two POST /api/runs cannot write
  against the ledger concurrently, and guards the cached last report.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid request body or date format
  - 404: No run has happened yet (runs/latest)
  - 500: Directory, ledger, or commit failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Automated periodic runs
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/reconcile"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Calendar *factory.Calendar
	Capacity int

	mu      sync.Mutex
	lastRun *reconcile.RunReport
}

// NewHandler creates a new handler with the given store and calendar.
func NewHandler(store *sqlite.Store, cal *factory.Calendar) *Handler {
	return &Handler{
		Store:    store,
		Calendar: cal,
		Capacity: reconcile.DefaultBatchCapacity,
	}
}

// LastRun returns the most recent run report, or nil if none has run.
func (h *Handler) LastRun() *reconcile.RunReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastRun
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// AUDIT
// =============================================================================

// RunAudit performs a read-only tenant-consistency scan of the ledger.
// GET /api/audit
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := reconcile.RunAudit(ctx, reconcile.Config{
		Directory: h.Store,
		Store:     h.Store,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Audit failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toAuditResponse(report))
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

// LatestRun returns the report of the most recent reconciliation run.
// GET /api/runs/latest
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	last := h.LastRun()
	if last == nil {
		writeError(w, http.StatusNotFound, "No reconciliation run yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(last))
}

// TriggerRun executes a reconciliation run, optionally over an explicit
// window. Serialized: concurrent triggers queue behind the mutex.
// POST /api/runs
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var from, to time.Time
	var err error
	if req.From != "" {
		from, err = time.Parse("2006-01-02", req.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid from date: %s (use YYYY-MM-DD)", req.From), err)
			return
		}
	}
	if req.To != "" {
		to, err = time.Parse("2006-01-02", req.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid to date: %s (use YYYY-MM-DD)", req.To), err)
			return
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		writeError(w, http.StatusBadRequest, "to date precedes from date", nil)
		return
	}

	report, err := h.RunNow(ctx, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(report))
}

// RunNow executes one reconciliation run and caches its report. Holding
// the mutex for the whole run keeps concurrent triggers (HTTP and
// scheduler) from writing against the ledger at the same time.
func (h *Handler) RunNow(ctx context.Context, from, to time.Time) (*reconcile.RunReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	report, err := reconcile.Run(ctx, reconcile.Config{
		Directory: h.Store,
		Store:     h.Store,
		Holidays:  h.Calendar.Holidays,
		RestDay:   h.Calendar.RestDay,
		From:      from,
		To:        to,
		Capacity:  h.Capacity,
	})
	if err != nil {
		return nil, err
	}

	h.lastRun = report
	return report, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
