package facility

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	facilities Repository
}

func NewService(repo Repository) *Service {
	return &Service{facilities: repo}
}

func (s *Service) Create(ctx context.Context, f *Facility) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if f.Region == "" {
		return fmt.Errorf("region is required")
	}
	f.Active = true
	return s.facilities.Create(ctx, f)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return s.facilities.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, f *Facility) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	existing, err := s.facilities.GetByID(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("facility not found: %w", err)
	}
	f.CreatedAt = existing.CreatedAt
	return s.facilities.Update(ctx, f)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Facility, int, error) {
	return s.facilities.List(ctx, limit, offset)
}

// EnsureDefault seeds a "Default" facility when the table is empty.
// Any existing facility, including a renamed or deactivated default,
// suppresses the seed.
func (s *Service) EnsureDefault(ctx context.Context) (*Facility, error) {
	_, total, err := s.facilities.List(ctx, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	if total > 0 {
		return nil, nil
	}
	f := &Facility{Name: "Default", Region: "Unassigned"}
	if err := s.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("seed default facility: %w", err)
	}
	return f, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.facilities.GetByID(ctx, id); err != nil {
		return fmt.Errorf("facility not found: %w", err)
	}
	return s.facilities.Deactivate(ctx, id)
}
