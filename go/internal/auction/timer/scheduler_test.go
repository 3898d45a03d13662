package timer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func waitForFire(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer callback did not run")
	}
}

func assertNoFire(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
		t.Fatal("timer callback ran unexpectedly")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduleFiresAfterDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	leagueID := uuid.New()

	fired := make(chan struct{})
	s.Schedule(leagueID, 15*time.Second, func() { close(fired) })

	clock.BlockUntil(1)
	clock.Advance(14 * time.Second)
	assertNoFire(t, fired)

	clock.Advance(time.Second)
	waitForFire(t, fired)
}

func TestScheduleReplacesOutstandingTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	leagueID := uuid.New()

	first := make(chan struct{})
	second := make(chan struct{})

	s.Schedule(leagueID, 15*time.Second, func() { close(first) })
	clock.BlockUntil(1)

	// Replacement restarts the countdown from zero.
	clock.Advance(10 * time.Second)
	s.Schedule(leagueID, 15*time.Second, func() { close(second) })
	clock.BlockUntil(1)

	clock.Advance(10 * time.Second)
	assertNoFire(t, first)
	assertNoFire(t, second)

	clock.Advance(5 * time.Second)
	waitForFire(t, second)
	assertNoFire(t, first)
}

func TestCancelStopsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	leagueID := uuid.New()

	fired := make(chan struct{})
	h := s.Schedule(leagueID, 15*time.Second, func() { close(fired) })
	clock.BlockUntil(1)

	s.Cancel(h)
	clock.Advance(20 * time.Second)
	assertNoFire(t, fired)

	// Cancelling again is a no-op.
	s.Cancel(h)
	s.Cancel(nil)
}

func TestCancelLeagueStopsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	leagueID := uuid.New()

	fired := make(chan struct{})
	s.Schedule(leagueID, 15*time.Second, func() { close(fired) })
	clock.BlockUntil(1)

	s.CancelLeague(leagueID)
	clock.Advance(20 * time.Second)
	assertNoFire(t, fired)

	// Cancelling a league with no timer is a no-op.
	s.CancelLeague(uuid.New())
}

func TestLeaguesDoNotInterfere(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)

	firedA := make(chan struct{})
	firedB := make(chan struct{})

	s.Schedule(uuid.New(), 10*time.Second, func() { close(firedA) })
	s.Schedule(uuid.New(), 20*time.Second, func() { close(firedB) })
	clock.BlockUntil(2)

	clock.Advance(10 * time.Second)
	waitForFire(t, firedA)
	assertNoFire(t, firedB)

	clock.Advance(10 * time.Second)
	waitForFire(t, firedB)
}
