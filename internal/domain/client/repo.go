package client

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinictrack/clinictrack/internal/adherence"
)

// ErrDuplicateEnrollment is returned when an enrollment number is already
// registered.
var ErrDuplicateEnrollment = errors.New("enrollment number already registered")

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	FacilityID       uuid.UUID
	Status           string
	EnrollmentNumber string
}

type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetByEnrollment(ctx context.Context, enrollmentNumber string) (*Client, error)
	Update(ctx context.Context, c *Client) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Client, int, error)

	// ListDue returns active clients whose next pickup falls on or before
	// the horizon date, ordered soonest first.
	ListDue(ctx context.Context, horizon time.Time, facilityID uuid.UUID, limit, offset int) ([]*Client, int, error)

	// ListActiveForSweep feeds the daily reminder sweep.
	ListActiveForSweep(ctx context.Context) ([]adherence.DueClient, error)
}
