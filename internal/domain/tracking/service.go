package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinictrack/clinictrack/internal/adherence"
)

// Service validates and records tracking log entries. It also backs the
// daily sweep's reminder store.
type Service struct {
	records Repository
}

func NewService(repo Repository) *Service {
	return &Service{records: repo}
}

func (s *Service) Create(ctx context.Context, rec *Record) error {
	if rec.ClientID == uuid.Nil {
		return fmt.Errorf("client_id is required")
	}
	if rec.ActorID == uuid.Nil {
		return fmt.Errorf("actor_id is required")
	}
	if !ValidKind(rec.Kind) {
		return fmt.Errorf("invalid kind: %s", rec.Kind)
	}
	if rec.InterventionDate.IsZero() {
		return fmt.Errorf("intervention_date is required")
	}
	return s.records.Create(ctx, rec)
}

// Append records a manual entry on behalf of another domain operation.
func (s *Service) Append(ctx context.Context, clientID, actorID uuid.UUID, kind string, date time.Time, findings string, followUp *time.Time) error {
	return s.Create(ctx, &Record{
		ClientID:         clientID,
		ActorID:          actorID,
		Kind:             kind,
		InterventionDate: date,
		Findings:         findings,
		FollowUpDate:     followUp,
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListByClient(ctx, clientID, limit, offset)
}

// Resolve marks an entry's follow-up as handled. The only mutation the
// log permits.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) error {
	return s.records.Resolve(ctx, id)
}

// ReminderClientIDsOn reports which clients already have an automated
// reminder dated day.
func (s *Service) ReminderClientIDsOn(ctx context.Context, day time.Time) (map[uuid.UUID]bool, error) {
	return s.records.ReminderClientIDsOn(ctx, day)
}

// CreateReminder writes an automated reminder entry for the daily sweep.
func (s *Service) CreateReminder(ctx context.Context, rem adherence.Reminder) error {
	return s.records.Create(ctx, &Record{
		ClientID:         rem.ClientID,
		ActorID:          rem.ActorID,
		Kind:             KindReminder,
		InterventionDate: rem.Date,
		Findings:         rem.Findings,
		FollowUpDate:     rem.FollowUpDate,
		Automated:        true,
	})
}
