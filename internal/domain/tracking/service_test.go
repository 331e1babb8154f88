package tracking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinictrack/clinictrack/internal/adherence"
)

type mockRepo struct {
	store map[uuid.UUID]*Record
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Record)}
}

func (m *mockRepo) Create(_ context.Context, rec *Record) error {
	if rec.Kind == KindReminder && rec.Automated {
		for _, existing := range m.store {
			if existing.Kind == KindReminder && existing.Automated &&
				existing.ClientID == rec.ClientID &&
				existing.InterventionDate.Equal(rec.InterventionDate) {
				return ErrDuplicateReminder
			}
		}
	}
	rec.ID = uuid.New()
	m.store[rec.ID] = rec
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	rec, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return rec, nil
}

func (m *mockRepo) ListByClient(_ context.Context, clientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var result []*Record
	for _, rec := range m.store {
		if rec.ClientID == clientID {
			result = append(result, rec)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) Resolve(_ context.Context, id uuid.UUID) error {
	rec, ok := m.store[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	rec.Resolved = true
	return nil
}

func (m *mockRepo) ReminderClientIDsOn(_ context.Context, day time.Time) (map[uuid.UUID]bool, error) {
	ids := make(map[uuid.UUID]bool)
	for _, rec := range m.store {
		if rec.Kind == KindReminder && rec.Automated && rec.InterventionDate.Equal(day) {
			ids[rec.ClientID] = true
		}
	}
	return ids, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		rec  Record
	}{
		{"missing client", Record{ActorID: uuid.New(), Kind: KindVisit, InterventionDate: day(2024, 6, 1)}},
		{"missing actor", Record{ClientID: uuid.New(), Kind: KindVisit, InterventionDate: day(2024, 6, 1)}},
		{"bad kind", Record{ClientID: uuid.New(), ActorID: uuid.New(), Kind: "party", InterventionDate: day(2024, 6, 1)}},
		{"missing date", Record{ClientID: uuid.New(), ActorID: uuid.New(), Kind: KindVisit}},
	}
	for _, tc := range cases {
		rec := tc.rec
		if err := svc.Create(ctx, &rec); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestResolve(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	rec := &Record{ClientID: uuid.New(), ActorID: uuid.New(), Kind: KindCall, InterventionDate: day(2024, 6, 1)}
	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if err := svc.Resolve(context.Background(), rec.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Get(context.Background(), rec.ID)
	if !got.Resolved {
		t.Error("record should be resolved")
	}

	if err := svc.Resolve(context.Background(), uuid.New()); err == nil {
		t.Error("expected error resolving unknown record")
	}
}

func TestCreateReminder_DedupedPerDay(t *testing.T) {
	svc := NewService(newMockRepo())
	clientID := uuid.New()
	rem := adherence.Reminder{
		ClientID: clientID,
		ActorID:  uuid.New(),
		Date:     day(2024, 6, 1),
		Findings: adherence.FindingsDue,
	}
	if err := svc.CreateReminder(context.Background(), rem); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateReminder(context.Background(), rem); err != ErrDuplicateReminder {
		t.Errorf("expected ErrDuplicateReminder, got %v", err)
	}

	ids, err := svc.ReminderClientIDsOn(context.Background(), day(2024, 6, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !ids[clientID] {
		t.Error("client should appear in today's reminder set")
	}
	ids, _ = svc.ReminderClientIDsOn(context.Background(), day(2024, 6, 2))
	if ids[clientID] {
		t.Error("reminder must not leak into the next day")
	}
}

func TestCreateReminder_MarksAutomated(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	if err := svc.CreateReminder(context.Background(), adherence.Reminder{
		ClientID: uuid.New(), ActorID: uuid.New(), Date: day(2024, 6, 1), Findings: adherence.FindingsOverdue,
	}); err != nil {
		t.Fatal(err)
	}
	for _, rec := range repo.store {
		if !rec.Automated || rec.Kind != KindReminder {
			t.Errorf("reminder stored as %+v", rec)
		}
	}
}

func TestAppend(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	clientID := uuid.New()
	if err := svc.Append(context.Background(), clientID, uuid.New(), KindVisit,
		day(2024, 6, 1), "Pharmacy pickup recorded", nil); err != nil {
		t.Fatal(err)
	}
	items, total, err := svc.ListByClient(context.Background(), clientID, 20, 0)
	if err != nil || total != 1 {
		t.Fatalf("list: %v, total %d", err, total)
	}
	if items[0].Automated {
		t.Error("manual append must not be marked automated")
	}
}
