/*
calendar.go - Policy calendar resolution

PURPOSE:
  Merges two independent calendars - named holidays and weekly rest-days -
  into a single ordered sequence of PolicyDate for a window. Pure function
  of its inputs: deterministic, side-effect-free, testable without a store.

DEDUPLICATION:
  A day that is both a named holiday and the weekly rest-day appears ONCE,
  tagged as a named holiday (the holiday's name wins as the reason). This
  guarantees the engine processes each (date, user) pair at most once and
  never emits two intents for one key.

SEE ALSO:
  - engine.go: Consumes the resolved dates in chronological order
  - factory/: Builds the compiled-in holiday list from JSON
*/
package reconcile

import (
	"sort"
	"time"
)

// DefaultRestDay is the weekly rest weekday: the first day of a 0-indexed
// week. Changeable only by redeploying the job.
const DefaultRestDay = time.Sunday

// ResolvePolicyDates produces the ordered, deduplicated set of rest dates in
// [start, end] (inclusive). Weekly rest-days are generated by weekday
// membership; named holidays are filtered to the window and take precedence
// on collision.
func ResolvePolicyDates(start, end time.Time, holidays []Holiday, restDay time.Weekday) []PolicyDate {
	start, end = DayOf(start), DayOf(end)
	if end.Before(start) {
		return nil
	}

	byDay := make(map[time.Time]PolicyDate)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == restDay {
			byDay[d] = PolicyDate{
				Date:   d,
				Reason: "Weekly off (" + restDay.String() + ")",
				Kind:   KindWeeklyRest,
			}
		}
	}

	// Holidays override weekly rest on collision: prefer the holiday's name.
	for _, h := range holidays {
		d := DayOf(h.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		byDay[d] = PolicyDate{Date: d, Reason: h.Name, Kind: KindNamedHoliday}
	}

	dates := make([]PolicyDate, 0, len(byDay))
	for _, pd := range byDay {
		dates = append(dates, pd)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Date.Before(dates[j].Date) })
	return dates
}
