package adherence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// =========== Mocks ===========

type mockClientSource struct {
	clients []DueClient
	err     error
	entered chan struct{} // closed on first call, when set
	block   chan struct{} // when set, ListActiveForSweep blocks until closed
}

func (m *mockClientSource) ListActiveForSweep(_ context.Context) ([]DueClient, error) {
	if m.entered != nil {
		close(m.entered)
		m.entered = nil
	}
	if m.block != nil {
		<-m.block
	}
	return m.clients, m.err
}

type mockReminderStore struct {
	existing  map[uuid.UUID]bool
	created   []Reminder
	failAfter int // fail on the nth create (1-based); 0 means never
}

func (m *mockReminderStore) ReminderClientIDsOn(_ context.Context, _ time.Time) (map[uuid.UUID]bool, error) {
	if m.existing == nil {
		return map[uuid.UUID]bool{}, nil
	}
	return m.existing, nil
}

func (m *mockReminderStore) CreateReminder(_ context.Context, rem Reminder) error {
	if m.failAfter > 0 && len(m.created)+1 >= m.failAfter {
		return errors.New("insert failed")
	}
	m.created = append(m.created, rem)
	if m.existing == nil {
		m.existing = map[uuid.UUID]bool{}
	}
	m.existing[rem.ClientID] = true
	return nil
}

// passTx runs fn directly; rollback semantics are exercised against the
// real store, not here.
type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestSweeper(clients *mockClientSource, store *mockReminderStore) *Sweeper {
	return NewSweeper(clients, store, passTx{}, DefaultPolicy(), uuid.New(), zerolog.Nop())
}

// =========== Tests ===========

func TestRunDailySweep_RemindsDueAndOverdue(t *testing.T) {
	today := date(2024, 6, 10)
	dueToday := today
	overdue := today.AddDate(0, 0, -5)
	stale := today.AddDate(0, 0, -29)
	future := today.AddDate(0, 0, 20)

	src := &mockClientSource{clients: []DueClient{
		{ID: uuid.New(), NextPickupDate: &dueToday},
		{ID: uuid.New(), NextPickupDate: &overdue},
		{ID: uuid.New(), NextPickupDate: &stale},
		{ID: uuid.New(), NextPickupDate: &future},
		{ID: uuid.New(), NextPickupDate: nil},
	}}
	store := &mockReminderStore{}

	n, err := newTestSweeper(src, store).RunDailySweep(context.Background(), today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 reminders (due + overdue), got %d", n)
	}

	byFindings := map[string]int{}
	for _, rem := range store.created {
		byFindings[rem.Findings]++
		if rem.FollowUpDate == nil {
			t.Error("reminder should carry the next pickup date as follow-up")
		}
	}
	if byFindings[FindingsDue] != 1 || byFindings[FindingsOverdue] != 1 {
		t.Errorf("unexpected findings distribution: %v", byFindings)
	}
}

func TestRunDailySweep_Idempotent(t *testing.T) {
	today := date(2024, 6, 10)
	overdue := today.AddDate(0, 0, -3)
	src := &mockClientSource{clients: []DueClient{
		{ID: uuid.New(), NextPickupDate: &overdue},
	}}
	store := &mockReminderStore{}
	sw := newTestSweeper(src, store)

	first, err := sw.RunDailySweep(context.Background(), today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected 1 reminder on first run, got %d", first)
	}

	second, err := sw.RunDailySweep(context.Background(), today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != 0 {
		t.Errorf("expected 0 additional reminders on second run, got %d", second)
	}
}

func TestRunDailySweep_SkipsExistingReminders(t *testing.T) {
	today := date(2024, 6, 10)
	overdue := today.AddDate(0, 0, -1)
	id := uuid.New()
	src := &mockClientSource{clients: []DueClient{{ID: id, NextPickupDate: &overdue}}}
	store := &mockReminderStore{existing: map[uuid.UUID]bool{id: true}}

	n, err := newTestSweeper(src, store).RunDailySweep(context.Background(), today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected dedup to skip the client, got %d reminders", n)
	}
}

func TestRunDailySweep_CreateFailureAbortsBatch(t *testing.T) {
	today := date(2024, 6, 10)
	overdue := today.AddDate(0, 0, -2)
	src := &mockClientSource{clients: []DueClient{
		{ID: uuid.New(), NextPickupDate: &overdue},
		{ID: uuid.New(), NextPickupDate: &overdue},
	}}
	store := &mockReminderStore{failAfter: 2}

	n, err := newTestSweeper(src, store).RunDailySweep(context.Background(), today)
	if err == nil {
		t.Fatal("expected error when a reminder insert fails")
	}
	if n != 0 {
		t.Errorf("failed sweep must report zero reminders, got %d", n)
	}
}

func TestRunDailySweep_SingleFlight(t *testing.T) {
	today := date(2024, 6, 10)
	entered := make(chan struct{})
	block := make(chan struct{})
	src := &mockClientSource{entered: entered, block: block}
	sw := newTestSweeper(src, &mockReminderStore{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = sw.RunDailySweep(context.Background(), today)
	}()

	// Wait until the first run holds the guard, then try to overlap.
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first sweep never started")
	}
	if _, err := sw.RunDailySweep(context.Background(), today); !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("expected ErrSweepInProgress while a run is executing, got %v", err)
	}

	close(block)
	wg.Wait()
}
