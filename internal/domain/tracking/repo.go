package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateReminder is returned when an automated reminder already
// exists for the same client and calendar day. The store enforces this
// with a partial unique index; the sweep dedup check runs first, so
// hitting this error means two writers raced.
var ErrDuplicateReminder = errors.New("automated reminder already recorded for this client today")

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Record, int, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	ReminderClientIDsOn(ctx context.Context, day time.Time) (map[uuid.UUID]bool, error)
}
