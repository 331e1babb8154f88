package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinictrack/clinictrack/internal/adherence"
)

func TestNextFiring(t *testing.T) {
	r := NewRunner(nil, 6, zerolog.Nop(), nil)

	now := time.Date(2024, 6, 1, 5, 30, 0, 0, time.UTC)
	next := r.nextFiring(now)
	want := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("before the hour: next = %v, want %v", next, want)
	}

	now = time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	next = r.nextFiring(now)
	want = time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("exactly on the hour: next = %v, want %v", next, want)
	}

	now = time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	next = r.nextFiring(now)
	want = time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("after the hour: next = %v, want %v", next, want)
	}
}

type recordingObserver struct {
	created int
	err     error
	calls   int
}

func (o *recordingObserver) ObserveSweep(created int, err error) {
	o.created, o.err = created, err
	o.calls++
}

func TestRunOnce_PassesCalendarDay(t *testing.T) {
	var gotDay time.Time
	r := NewRunner(func(_ context.Context, today time.Time) (int, error) {
		gotDay = today
		return 3, nil
	}, 6, zerolog.Nop(), nil)
	r.now = func() time.Time {
		return time.Date(2024, 6, 1, 14, 22, 7, 0, time.UTC)
	}

	created, err := r.RunOnce(context.Background())
	if err != nil || created != 3 {
		t.Fatalf("RunOnce = %d, %v", created, err)
	}
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if !gotDay.Equal(want) {
		t.Errorf("sweep day = %v, want truncated %v", gotDay, want)
	}
}

func TestRunOnce_ReportsToObserver(t *testing.T) {
	boom := errors.New("boom")
	obs := &recordingObserver{}
	r := NewRunner(func(context.Context, time.Time) (int, error) {
		return 0, boom
	}, 6, zerolog.Nop(), obs)

	if _, err := r.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if obs.calls != 1 || obs.err != boom {
		t.Errorf("observer saw %d calls, err %v", obs.calls, obs.err)
	}
}

func TestRunOnce_InFlightSkipIsNotFatal(t *testing.T) {
	r := NewRunner(func(context.Context, time.Time) (int, error) {
		return 0, adherence.ErrSweepInProgress
	}, 6, zerolog.Nop(), nil)

	if _, err := r.RunOnce(context.Background()); !errors.Is(err, adherence.ErrSweepInProgress) {
		t.Fatalf("err = %v", err)
	}
}
