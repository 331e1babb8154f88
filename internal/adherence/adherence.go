// Package adherence implements the follow-up scheduling policy for
// recurring clinical events: next-due computation, urgency
// classification, the daily reminder sweep, and the defaulter
// transition rule. It holds no state between invocations; everything
// it needs is read fresh from the store on each run.
package adherence

import "time"

// Default cadences, in months.
const (
	DefaultPickupCadenceMonths    = 1
	DefaultViralLoadCadenceMonths = 6
)

// daysPerMonth is the fixed month length used for due-date arithmetic.
// Downstream reports depend on the 30-day approximation (a 6-month
// cadence is exactly 180 days), so this must not be replaced with
// calendar-month arithmetic.
const daysPerMonth = 30

const (
	// dueSoonWindowDays is the lookahead window for upcoming events.
	dueSoonWindowDays = 7
	// staleAfterDays is how far past due an event may be before the
	// sweep stops re-reminding and the client becomes a candidate for
	// manual defaulter review.
	staleAfterDays = 28
	// DefaulterAfterDays is the minimum lateness, in days, before an
	// authorized actor may mark a client as a defaulter.
	DefaulterAfterDays = 28
)

// Client statuses. Active is the only initial state; every other
// status is terminal as far as this package is concerned (reactivation
// is a manual operation outside its scope).
const (
	StatusActive                = "active"
	StatusDefaulter             = "defaulter"
	StatusTreatmentInterruption = "in-treatment-interruption"
	StatusDeceased              = "deceased"
	StatusTransferredOut        = "transferred-out"
)

var clientStatuses = map[string]bool{
	StatusActive:                true,
	StatusDefaulter:             true,
	StatusTreatmentInterruption: true,
	StatusDeceased:              true,
	StatusTransferredOut:        true,
}

// ValidStatus reports whether s is a recognized client status.
func ValidStatus(s string) bool { return clientStatuses[s] }

// CanTransition reports whether a client may move from one status to
// another. Only active clients may transition, and only to a distinct
// valid status.
func CanTransition(from, to string) bool {
	return from == StatusActive && to != StatusActive && ValidStatus(to)
}

// Urgency is the band a client's next due date falls into relative to
// today.
type Urgency int

const (
	NotDue Urgency = iota
	DueSoon
	Overdue
	OverdueStale
)

func (u Urgency) String() string {
	switch u {
	case DueSoon:
		return "due_soon"
	case Overdue:
		return "overdue"
	case OverdueStale:
		return "overdue_stale"
	default:
		return "not_due"
	}
}

// NextDue returns the next due date for a recurring event given the
// last event date and a cadence in months, or nil when no baseline
// event exists. cadenceMonths values below 1 are treated as 1.
func NextDue(lastEvent *time.Time, cadenceMonths int) *time.Time {
	if lastEvent == nil {
		return nil
	}
	if cadenceMonths < 1 {
		cadenceMonths = 1
	}
	due := calendarDay(*lastEvent).AddDate(0, 0, cadenceMonths*daysPerMonth)
	return &due
}

// Classify returns the urgency band for a due date as of today. A nil
// due date is NotDue. A due date equal to today counts as DueSoon, not
// Overdue.
func Classify(today time.Time, due *time.Time) Urgency {
	if due == nil {
		return NotDue
	}
	// Positive when the due date is still ahead.
	days := int(calendarDay(*due).Sub(calendarDay(today)).Hours() / 24)
	switch {
	case days > dueSoonWindowDays:
		return NotDue
	case days >= 0:
		return DueSoon
	case days >= -staleAfterDays:
		return Overdue
	default:
		return OverdueStale
	}
}

// DaysLate returns how many days past the last pickup window today is,
// or zero when the client is not late or has no pickup on record.
func DaysLate(lastPickup *time.Time, today time.Time) int {
	if lastPickup == nil {
		return 0
	}
	days := int(calendarDay(today).Sub(calendarDay(*lastPickup)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// calendarDay truncates a timestamp to its calendar day in UTC so that
// all date arithmetic is insensitive to the time-of-day component.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
