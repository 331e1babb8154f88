package adherence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrSweepInProgress is returned when a sweep is requested while a
// previous run is still executing. The dedup check is read-then-write,
// so overlapping runs must be refused rather than interleaved.
var ErrSweepInProgress = errors.New("daily sweep already in progress")

// Findings text recorded on automated reminders.
const (
	FindingsDue     = "Due for pharmacy pickup"
	FindingsOverdue = "Overdue for pharmacy pickup"
)

// DueClient is the minimal view of a client the sweep needs.
type DueClient struct {
	ID             uuid.UUID
	NextPickupDate *time.Time
}

// ClientSource lists the clients eligible for reminder evaluation.
// Only clients with status active are returned; once a client leaves
// active it is no longer swept.
type ClientSource interface {
	ListActiveForSweep(ctx context.Context) ([]DueClient, error)
}

// Reminder is an automated reminder to be appended to the tracking log.
type Reminder struct {
	ClientID     uuid.UUID
	ActorID      uuid.UUID
	Date         time.Time
	Findings     string
	FollowUpDate *time.Time
}

// ReminderStore reads and appends automated reminders in the tracking
// log. ReminderClientIDsOn returns the clients that already have a
// reminder dated the given day, which the sweep uses for per-day
// deduplication.
type ReminderStore interface {
	ReminderClientIDsOn(ctx context.Context, day time.Time) (map[uuid.UUID]bool, error)
	CreateReminder(ctx context.Context, rem Reminder) error
}

// TxRunner executes fn inside a single store transaction. The sweep
// relies on it for the all-or-nothing batch guarantee: a persistence
// failure part way through a day's batch must leave no reminders
// applied.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Sweeper runs the daily reminder sweep. It is stateless between runs
// apart from the single-flight guard.
type Sweeper struct {
	clients   ClientSource
	reminders ReminderStore
	tx        TxRunner
	policy    Policy
	// systemActor is the reserved actor identity recorded on automated
	// reminders; it comes from configuration, not a hardcoded value.
	systemActor uuid.UUID
	logger      zerolog.Logger

	mu sync.Mutex
}

// NewSweeper creates a Sweeper. systemActor is the reserved
// system-actor identifier configured for automated reminders.
func NewSweeper(clients ClientSource, reminders ReminderStore, tx TxRunner, policy Policy, systemActor uuid.UUID, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		clients:     clients,
		reminders:   reminders,
		tx:          tx,
		policy:      policy,
		systemActor: systemActor,
		logger:      logger,
	}
}

// RunDailySweep evaluates every active client for pickup urgency and
// appends one reminder per newly due or overdue client. Clients that
// are more than the stale threshold past due are skipped; the sweep
// does not keep re-reminding indefinitely. Running the sweep twice for
// the same day produces zero additional reminders the second time.
// It returns the number of reminders created.
func (s *Sweeper) RunDailySweep(ctx context.Context, today time.Time) (int, error) {
	if !s.mu.TryLock() {
		return 0, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	var created int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		clients, err := s.clients.ListActiveForSweep(ctx)
		if err != nil {
			return fmt.Errorf("list active clients: %w", err)
		}
		already, err := s.reminders.ReminderClientIDsOn(ctx, today)
		if err != nil {
			return fmt.Errorf("list existing reminders: %w", err)
		}

		for _, c := range clients {
			urgency := Classify(today, c.NextPickupDate)
			if urgency != DueSoon && urgency != Overdue {
				continue
			}
			if already[c.ID] {
				continue
			}
			findings := FindingsDue
			if urgency == Overdue {
				findings = FindingsOverdue
			}
			rem := Reminder{
				ClientID:     c.ID,
				ActorID:      s.systemActor,
				Date:         today,
				Findings:     findings,
				FollowUpDate: c.NextPickupDate,
			}
			if err := s.reminders.CreateReminder(ctx, rem); err != nil {
				return fmt.Errorf("create reminder for client %s: %w", c.ID, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Int("reminders_created", created).
		Str("sweep_date", today.Format("2006-01-02")).
		Msg("daily sweep completed")
	return created, nil
}
