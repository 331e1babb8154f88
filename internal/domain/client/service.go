package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinictrack/clinictrack/internal/adherence"
	"github.com/clinictrack/clinictrack/internal/domain/tracking"
)

// TrackingWriter appends entries to the tracking log. Satisfied by
// tracking.Service.
type TrackingWriter interface {
	Append(ctx context.Context, clientID, actorID uuid.UUID, kind string, date time.Time, findings string, followUp *time.Time) error
}

type Service struct {
	clients Repository
	tracker TrackingWriter
	tx      adherence.TxRunner
	policy  adherence.Policy
}

func NewService(repo Repository, tracker TrackingWriter, tx adherence.TxRunner, policy adherence.Policy) *Service {
	return &Service{clients: repo, tracker: tracker, tx: tx, policy: policy}
}

// Enroll registers a new client. Schedule dates are derived from any
// last-event dates supplied at enrollment (e.g. from a roster import).
func (s *Service) Enroll(ctx context.Context, c *Client) error {
	if c.EnrollmentNumber == "" {
		return fmt.Errorf("enrollment_number is required")
	}
	if c.FacilityID == uuid.Nil {
		return fmt.Errorf("facility_id is required")
	}
	if c.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	c.Status = adherence.StatusActive
	c.NextPickupDate = s.policy.NextPickupDue(c.LastPickupDate)
	c.NextViralLoadDate = s.policy.NextViralLoadDue(c.LastViralLoadDate)
	return s.clients.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.clients.GetByID(ctx, id)
}

func (s *Service) GetByEnrollment(ctx context.Context, enrollmentNumber string) (*Client, error) {
	return s.clients.GetByEnrollment(ctx, enrollmentNumber)
}

// UpdateDemographics changes identifying fields only. Status and schedule
// fields are owned by the dedicated operations below.
func (s *Service) UpdateDemographics(ctx context.Context, c *Client) (*Client, error) {
	existing, err := s.clients.GetByID(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}
	if c.FullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	existing.FullName = c.FullName
	existing.Phone = c.Phone
	existing.Sex = c.Sex
	existing.BirthDate = c.BirthDate
	if c.FacilityID != uuid.Nil {
		existing.FacilityID = c.FacilityID
	}
	if err := s.clients.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Client, int, error) {
	if filter.Status != "" && !adherence.ValidStatus(filter.Status) {
		return nil, 0, fmt.Errorf("invalid status: %s", filter.Status)
	}
	return s.clients.List(ctx, filter, limit, offset)
}

// RecordPickup logs a pharmacy pickup and advances the pickup schedule.
func (s *Service) RecordPickup(ctx context.Context, clientID, actorID uuid.UUID, date time.Time) (*Client, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("pickup date is required")
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}
	c.LastPickupDate = &date
	c.NextPickupDate = s.policy.NextPickupDue(&date)

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.clients.Update(ctx, c); err != nil {
			return err
		}
		return s.tracker.Append(ctx, c.ID, actorID, tracking.KindVisit, date,
			"Pharmacy pickup recorded", c.NextPickupDate)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// RecordViralLoad logs a viral load test and advances the viral load schedule.
func (s *Service) RecordViralLoad(ctx context.Context, clientID, actorID uuid.UUID, date time.Time) (*Client, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("viral load date is required")
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}
	c.LastViralLoadDate = &date
	c.NextViralLoadDate = s.policy.NextViralLoadDue(&date)

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.clients.Update(ctx, c); err != nil {
			return err
		}
		return s.tracker.Append(ctx, c.ID, actorID, tracking.KindVisit, date,
			"Viral load test recorded", c.NextViralLoadDate)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ChangeStatus moves a client out of active care. Terminal states cannot
// be left through this operation.
func (s *Service) ChangeStatus(ctx context.Context, clientID, actorID uuid.UUID, newStatus string, date time.Time, notes string) (*Client, error) {
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}
	if !adherence.CanTransition(c.Status, newStatus) {
		return nil, fmt.Errorf("cannot transition from %s to %s", c.Status, newStatus)
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	c.Status = newStatus
	c.NegativeEventKind = &newStatus
	c.NegativeEventDate = &date
	if notes != "" {
		c.NegativeEventNotes = &notes
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.clients.Update(ctx, c); err != nil {
			return err
		}
		return s.tracker.Append(ctx, c.ID, actorID, tracking.KindStatusChange, date,
			"Status changed to "+newStatus, nil)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// InterventionResult reports what RecordIntervention did.
type InterventionResult struct {
	StatusChanged bool   `json:"status_changed"`
	NewStatus     string `json:"new_status,omitempty"`
	DaysLate      int    `json:"days_late"`
}

// RecordIntervention logs a manual follow-up contact. When the client has
// gone without a pickup past the defaulter threshold and the actor's role
// is authorized, the client is additionally marked as a defaulter; an
// unauthorized or not-yet-late intervention records a plain note and
// leaves the status untouched.
func (s *Service) RecordIntervention(ctx context.Context, clientID, actorID uuid.UUID, actorRole, kind string, today time.Time, findings string, followUp *time.Time) (*InterventionResult, error) {
	if !tracking.ValidKind(kind) || kind == tracking.KindReminder {
		return nil, fmt.Errorf("invalid intervention kind: %s", kind)
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}

	decision := adherence.DefaulterDecision{DaysLate: adherence.DaysLate(c.LastPickupDate, today)}
	if c.Status == adherence.StatusActive {
		decision = s.policy.EvaluateDefaulter(c.LastPickupDate, today, actorRole)
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if decision.StatusChanged {
			kind = tracking.KindStatusChange
			c.Status = decision.NewStatus
			c.NegativeEventKind = &decision.NewStatus
			c.NegativeEventDate = &today
			if findings != "" {
				c.NegativeEventNotes = &findings
			}
			if err := s.clients.Update(ctx, c); err != nil {
				return err
			}
		}
		return s.tracker.Append(ctx, c.ID, actorID, kind, today, findings, followUp)
	})
	if err != nil {
		return nil, err
	}

	return &InterventionResult{
		StatusChanged: decision.StatusChanged,
		NewStatus:     decision.NewStatus,
		DaysLate:      decision.DaysLate,
	}, nil
}

// ListDue returns active clients due or overdue for pickup within the
// 7-day lookahead window, annotated with urgency.
func (s *Service) ListDue(ctx context.Context, today time.Time, facilityID uuid.UUID, limit, offset int) ([]*DueView, int, error) {
	horizon := today.AddDate(0, 0, 7)
	items, total, err := s.clients.ListDue(ctx, horizon, facilityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*DueView, len(items))
	for i, c := range items {
		views[i] = NewDueView(c, today)
	}
	return views, total, nil
}
