package timer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Scheduler provides one cancellable single-shot delayed callback per
// league. Scheduling a new callback for a league first cancels any
// outstanding one, so a stale timer can never fire into fresh state.
type Scheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	active map[uuid.UUID]*Handle
}

// Handle identifies one scheduled callback. Cancelling a handle that
// already fired or was replaced is a safe no-op.
type Handle struct {
	leagueID uuid.UUID
	timer    clockwork.Timer
	cancelCh chan struct{}
	once     sync.Once
}

func (h *Handle) stop() {
	h.once.Do(func() { close(h.cancelCh) })
}

// NewScheduler creates a Scheduler on the given clock. Production use
// passes clockwork.NewRealClock(); tests pass a fake clock.
func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		clock:  clock,
		active: make(map[uuid.UUID]*Handle),
	}
}

// Schedule starts a one-shot delayed callback for the league, replacing
// any outstanding one. The callback runs on its own goroutine.
func (s *Scheduler) Schedule(leagueID uuid.UUID, delay time.Duration, fn func()) *Handle {
	h := &Handle{
		leagueID: leagueID,
		timer:    s.clock.NewTimer(delay),
		cancelCh: make(chan struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.active[leagueID]; ok {
		prev.stop()
		log.Debug().Str("league_id", leagueID.String()).Msg("replaced existing timer")
	}
	s.active[leagueID] = h
	s.mu.Unlock()

	go func() {
		select {
		case <-h.timer.Chan():
			// A replacement may have slipped in after the fire but before
			// we got here; only the current handle may run its callback.
			if !s.clearIfCurrent(leagueID, h) {
				log.Debug().Str("league_id", leagueID.String()).Msg("stale timer fire ignored")
				return
			}
			fn()
		case <-h.cancelCh:
			stopAndDrainTimer(h.timer)
		}
	}()

	log.Debug().
		Str("league_id", leagueID.String()).
		Dur("delay", delay).
		Msg("scheduled one-shot timer")

	return h
}

// Cancel cancels the handle if it has not fired. No-op if already fired,
// already cancelled, or already replaced.
func (s *Scheduler) Cancel(h *Handle) {
	if h == nil {
		return
	}
	s.mu.Lock()
	if cur, ok := s.active[h.leagueID]; ok && cur == h {
		delete(s.active, h.leagueID)
	}
	s.mu.Unlock()
	h.stop()
}

// CancelLeague cancels whatever timer is outstanding for the league.
func (s *Scheduler) CancelLeague(leagueID uuid.UUID) {
	s.mu.Lock()
	h, ok := s.active[leagueID]
	if ok {
		delete(s.active, leagueID)
	}
	s.mu.Unlock()
	if ok {
		h.stop()
		log.Debug().Str("league_id", leagueID.String()).Msg("cancelled existing timer")
	}
}

func (s *Scheduler) clearIfCurrent(leagueID uuid.UUID, h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.active[leagueID]; ok && cur == h {
		delete(s.active, leagueID)
		return true
	}
	return false
}

// stopAndDrainTimer safely stops a timer and drains its channel, per the
// time.Timer.Stop() documentation.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
