package tracking

import (
	"time"

	"github.com/google/uuid"
)

// Intervention kinds.
const (
	KindReminder     = "reminder"
	KindVisit        = "visit"
	KindCall         = "call"
	KindStatusChange = "status_change"
)

var validKinds = map[string]bool{
	KindReminder: true, KindVisit: true, KindCall: true, KindStatusChange: true,
}

func ValidKind(kind string) bool { return validKinds[kind] }

// Record is one entry in the tracking log. Entries are immutable once
// written; only the resolved flag may change afterwards.
type Record struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ClientID         uuid.UUID  `db:"client_id" json:"client_id"`
	ActorID          uuid.UUID  `db:"actor_id" json:"actor_id"`
	Kind             string     `db:"kind" json:"kind"`
	InterventionDate time.Time  `db:"intervention_date" json:"intervention_date"`
	Findings         string     `db:"findings" json:"findings"`
	FollowUpDate     *time.Time `db:"follow_up_date" json:"follow_up_date,omitempty"`
	Automated        bool       `db:"automated" json:"automated"`
	Resolved         bool       `db:"resolved" json:"resolved"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}
