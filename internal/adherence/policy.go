package adherence

import "time"

// Policy bundles the tunable parts of the adherence rules: event
// cadences and the set of roles authorized to declare defaulters. The
// thresholds themselves (28-day defaulter window, 7-day lookahead) are
// fixed contract and live as package constants.
type Policy struct {
	PickupCadenceMonths    int
	ViralLoadCadenceMonths int
	DefaulterRoles         map[string]bool
}

// DefaultPolicy returns the standard clinic policy: monthly pickups,
// six-monthly viral-load tests, defaulter declarations restricted to
// admins and case workers.
func DefaultPolicy() Policy {
	return Policy{
		PickupCadenceMonths:    DefaultPickupCadenceMonths,
		ViralLoadCadenceMonths: DefaultViralLoadCadenceMonths,
		DefaulterRoles:         map[string]bool{"admin": true, "case_worker": true},
	}
}

// NextPickupDue computes the next pharmacy pickup due date from the
// last recorded pickup.
func (p Policy) NextPickupDue(lastPickup *time.Time) *time.Time {
	return NextDue(lastPickup, p.PickupCadenceMonths)
}

// NextViralLoadDue computes the next viral-load test due date from the
// last recorded test.
func (p Policy) NextViralLoadDue(lastTest *time.Time) *time.Time {
	return NextDue(lastTest, p.ViralLoadCadenceMonths)
}

// DefaulterDecision is the outcome of evaluating an intervention
// against the defaulter rule. When StatusChanged is false the caller
// records a plain tracking note and leaves the client untouched.
type DefaulterDecision struct {
	StatusChanged bool
	NewStatus     string
	DaysLate      int
}

// EvaluateDefaulter applies the defaulter transition rule: a client
// whose last pickup is DefaulterAfterDays or more days ago may be
// marked as a defaulter, but only by an authorized role. Unauthorized
// attempts are not an error; they simply leave the status unchanged.
func (p Policy) EvaluateDefaulter(lastPickup *time.Time, today time.Time, actorRole string) DefaulterDecision {
	d := DefaulterDecision{DaysLate: DaysLate(lastPickup, today)}
	if d.DaysLate >= DefaulterAfterDays && p.DefaulterRoles[actorRole] {
		d.StatusChanged = true
		d.NewStatus = StatusDefaulter
	}
	return d
}
