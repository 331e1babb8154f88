package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinictrack/clinictrack/internal/adherence"
)

// Client is an enrolled person receiving care at a facility. Status starts
// at active; every other status is terminal for automated processing.
type Client struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	EnrollmentNumber string     `db:"enrollment_number" json:"enrollment_number"`
	FacilityID       uuid.UUID  `db:"facility_id" json:"facility_id"`
	FullName         string     `db:"full_name" json:"full_name"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Sex              *string    `db:"sex" json:"sex,omitempty"`
	BirthDate        *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Status           string     `db:"status" json:"status"`

	LastPickupDate    *time.Time `db:"last_pickup_date" json:"last_pickup_date,omitempty"`
	NextPickupDate    *time.Time `db:"next_pickup_date" json:"next_pickup_date,omitempty"`
	LastViralLoadDate *time.Time `db:"last_viral_load_date" json:"last_viral_load_date,omitempty"`
	NextViralLoadDate *time.Time `db:"next_viral_load_date" json:"next_viral_load_date,omitempty"`

	NegativeEventKind  *string    `db:"negative_event_kind" json:"negative_event_kind,omitempty"`
	NegativeEventDate  *time.Time `db:"negative_event_date" json:"negative_event_date,omitempty"`
	NegativeEventNotes *string    `db:"negative_event_notes" json:"negative_event_notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DueView is a client row annotated with its pickup urgency, served to
// worklist consumers.
type DueView struct {
	Client
	PickupUrgency string `json:"pickup_urgency"`
	DaysLate      int    `json:"days_late"`
}

// NewDueView classifies the client's pickup schedule as of today.
func NewDueView(c *Client, today time.Time) *DueView {
	return &DueView{
		Client:        *c,
		PickupUrgency: adherence.Classify(today, c.NextPickupDate).String(),
		DaysLate:      adherence.DaysLate(c.LastPickupDate, today),
	}
}
