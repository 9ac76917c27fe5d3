/*
dto.go - JSON request/response types for the reporting API

PURPOSE:
  Wire-format structs, kept separate from the domain types so the HTTP
  surface can evolve without touching the reconciliation core.
*/
package api

import "github.com/warp/attendance-engine/reconcile"

// RunRequest optionally narrows the reconciliation window. Empty fields
// select the default six-month lookback.
type RunRequest struct {
	From string `json:"from,omitempty"` // YYYY-MM-DD
	To   string `json:"to,omitempty"`   // YYYY-MM-DD
}

// RunResponse is the per-date and aggregate run summary.
type RunResponse struct {
	WindowFrom     string            `json:"window_from"`
	WindowTo       string            `json:"window_to"`
	DatesChecked   int               `json:"dates_checked"`
	UsersChecked   int               `json:"users_checked"`
	IssuesFound    int               `json:"issues_found"`
	IssuesFixed    int               `json:"issues_fixed"`
	Created        int               `json:"created"`
	Corrected      int               `json:"corrected"`
	AlreadyCorrect int               `json:"already_correct"`
	LeftAsIs       int               `json:"left_as_is"`
	Skipped        int               `json:"skipped"`
	Submissions    int               `json:"submissions"`
	Dates          []DateSummaryJSON `json:"dates"`
}

// DateSummaryJSON is one policy date's breakdown.
type DateSummaryJSON struct {
	Date           string `json:"date"`
	Reason         string `json:"reason"`
	UsersChecked   int    `json:"users_checked"`
	Created        int    `json:"created"`
	Corrected      int    `json:"corrected"`
	AlreadyCorrect int    `json:"already_correct"`
	LeftAsIs       int    `json:"left_as_is"`
	Skipped        int    `json:"skipped"`
}

// AuditResponse is the tenant-consistency report.
type AuditResponse struct {
	RecordsScanned int            `json:"records_scanned"`
	Clean          bool           `json:"clean"`
	Mismatched     []MismatchJSON `json:"mismatched_records"`
	Orphaned       []string       `json:"orphaned_usernames"`
}

// MismatchJSON is one tenant-ownership violation.
type MismatchJSON struct {
	RecordID        string `json:"record_id"`
	Username        string `json:"username"`
	StoredTenant    string `json:"stored_tenant_id"`
	CanonicalTenant string `json:"canonical_tenant_id"`
	Date            string `json:"date"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toRunResponse(r *reconcile.RunReport) RunResponse {
	resp := RunResponse{
		WindowFrom:     r.WindowFrom.Format("2006-01-02"),
		WindowTo:       r.WindowTo.Format("2006-01-02"),
		DatesChecked:   r.DatesChecked,
		UsersChecked:   r.UsersChecked,
		IssuesFound:    r.IssuesFound(),
		IssuesFixed:    r.Committed,
		Created:        r.Created,
		Corrected:      r.Corrected,
		AlreadyCorrect: r.AlreadyCorrect,
		LeftAsIs:       r.LeftAsIs,
		Skipped:        r.Skipped,
		Submissions:    r.Submissions,
		Dates:          []DateSummaryJSON{},
	}
	for _, dr := range r.Dates {
		resp.Dates = append(resp.Dates, DateSummaryJSON{
			Date:           dr.Date.Format("2006-01-02"),
			Reason:         dr.Reason,
			UsersChecked:   dr.UsersChecked,
			Created:        dr.Created,
			Corrected:      dr.Corrected,
			AlreadyCorrect: dr.AlreadyCorrect,
			LeftAsIs:       dr.LeftAsIs,
			Skipped:        dr.Skipped,
		})
	}
	return resp
}

func toAuditResponse(r *reconcile.AuditReport) AuditResponse {
	resp := AuditResponse{
		RecordsScanned: r.RecordsScanned,
		Clean:          r.Clean(),
		Mismatched:     []MismatchJSON{},
		Orphaned:       r.Orphaned,
	}
	if resp.Orphaned == nil {
		resp.Orphaned = []string{}
	}
	for _, m := range r.Mismatched {
		resp.Mismatched = append(resp.Mismatched, MismatchJSON{
			RecordID:        string(m.RecordID),
			Username:        m.Username,
			StoredTenant:    string(m.StoredTenant),
			CanonicalTenant: string(m.CanonicalTenant),
			Date:            m.Date.Format("2006-01-02"),
		})
	}
	return resp
}
