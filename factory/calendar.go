/*
Package factory provides JSON to Go policy calendar conversion.

PURPOSE:
  Converts JSON calendar definitions into the holiday list and weekly rest
  weekday the reconciliation job runs with. The calendar is compiled-in
  configuration - it ships embedded in the binary and changes only by
  redeploying the job - but expressing it as JSON keeps the policy data
  reviewable without reading Go code.

JSON SCHEMA:
  {
    "rest_day": "Sunday",
    "holidays": [
      {"date": "2025-01-26", "name": "Republic Day"},
      {"date": "2025-08-15", "name": "Independence Day"}
    ]
  }

USAGE:
  cal, err := factory.ParseCalendar(factory.DefaultCalendarJSON)
  dates := reconcile.ResolvePolicyDates(from, to, cal.Holidays, cal.RestDay)

SEE ALSO:
  - reconcile/calendar.go: Consumes the parsed calendar
  - cmd/reconciler: Wires DefaultCalendarJSON into the job
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/warp/attendance-engine/reconcile"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CalendarJSON is the JSON representation of the policy calendar.
type CalendarJSON struct {
	RestDay  string        `json:"rest_day"`
	Holidays []HolidayJSON `json:"holidays"`
}

// HolidayJSON is one named holiday.
type HolidayJSON struct {
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name"`
}

// Calendar is the parsed, ready-to-use policy calendar.
type Calendar struct {
	RestDay  time.Weekday
	Holidays []reconcile.Holiday
}

// =============================================================================
// COMPILED-IN DEFAULT
// =============================================================================

// DefaultCalendarJSON is the calendar the deployed job runs with.
const DefaultCalendarJSON = `{
  "rest_day": "Sunday",
  "holidays": [
    {"date": "2025-01-26", "name": "Republic Day"},
    {"date": "2025-03-14", "name": "Holi"},
    {"date": "2025-08-15", "name": "Independence Day"},
    {"date": "2025-10-02", "name": "Gandhi Jayanti"},
    {"date": "2025-10-21", "name": "Diwali"},
    {"date": "2025-12-25", "name": "Christmas Day"},
    {"date": "2026-01-26", "name": "Republic Day"}
  ]
}`

// =============================================================================
// PARSING
// =============================================================================

// ParseCalendar parses a JSON calendar definition.
func ParseCalendar(jsonStr string) (*Calendar, error) {
	var cj CalendarJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse calendar JSON: %w", err)
	}

	restDay, err := parseWeekday(cj.RestDay)
	if err != nil {
		return nil, err
	}

	cal := &Calendar{RestDay: restDay}
	for _, hj := range cj.Holidays {
		d, err := time.Parse("2006-01-02", hj.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: bad date %q: %w", hj.Name, hj.Date, err)
		}
		if hj.Name == "" {
			return nil, fmt.Errorf("holiday on %s has no name", hj.Date)
		}
		cal.Holidays = append(cal.Holidays, reconcile.Holiday{Date: d, Name: hj.Name})
	}
	return cal, nil
}

// DefaultCalendar parses the compiled-in calendar. Panics on a malformed
// constant: that is a build defect, not a runtime condition.
func DefaultCalendar() *Calendar {
	cal, err := ParseCalendar(DefaultCalendarJSON)
	if err != nil {
		panic(fmt.Sprintf("factory: invalid DefaultCalendarJSON: %v", err))
	}
	return cal
}

func parseWeekday(name string) (time.Weekday, error) {
	if name == "" {
		return reconcile.DefaultRestDay, nil
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), name) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}
