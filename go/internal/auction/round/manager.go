package round

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/devpatel10/gully/go/internal/auction/timer"
	"github.com/devpatel10/gully/go/internal/models"
)

// Notifier pushes messages to the league's chat surface. Announce is the
// group channel; Whisper is a best-effort private notice whose failure
// never blocks round progress.
type Notifier interface {
	Announce(ctx context.Context, leagueID uuid.UUID, text string)
	Whisper(ctx context.Context, participant models.Participant, text string)
}

// Reporter commits round outcomes to the ledger and event stream. The
// manager treats it as fire-and-forget with respect to local state:
// local state always reaches a terminal state even when the reporter
// fails.
type Reporter interface {
	ReportBid(ctx context.Context, rnd *models.BiddingRound, bid models.Bid, currentPrice float64) error
	ReportResolved(ctx context.Context, rnd *models.BiddingRound, winner models.Bid, finalPrice float64) error
	ReportSkipped(ctx context.Context, rnd *models.BiddingRound, unanimous bool) error
}

// Config holds the bidding round tunables.
type Config struct {
	Countdown    time.Duration
	BidIncrement float64
}

// DefaultConfig returns the reference round settings: 15s countdown,
// 0.5 currency-unit increment per bid after the first.
func DefaultConfig() Config {
	return Config{
		Countdown:    15 * time.Second,
		BidIncrement: 0.5,
	}
}

// Manager owns the bidding round state machine for every league. All
// mutation of a league's round goes through that league's lock, which
// stands in for the single-threaded scheduler of the reference design.
type Manager struct {
	cfg      Config
	clock    clockwork.Clock
	sched    *timer.Scheduler
	notifier Notifier
	reporter Reporter

	// onClosed runs after a round fully closes (outside all locks) so
	// the queue driver can advance. Optional.
	onClosed func(leagueID uuid.UUID)

	mu     sync.Mutex
	rounds map[uuid.UUID]*leagueRound
}

// leagueRound is the per-league single-writer cell. Its mutex serializes
// every bid, skip, and finalize for one league; leagues never contend
// with each other.
type leagueRound struct {
	mu           sync.Mutex
	round        *models.BiddingRound
	participants []models.Participant
}

func NewManager(cfg Config, clock clockwork.Clock, sched *timer.Scheduler, notifier Notifier, reporter Reporter) *Manager {
	return &Manager{
		cfg:      cfg,
		clock:    clock,
		sched:    sched,
		notifier: notifier,
		reporter: reporter,
		rounds:   make(map[uuid.UUID]*leagueRound),
	}
}

// SetOnClosed registers the round-closed hook. Must be called before the
// first round opens.
func (m *Manager) SetOnClosed(fn func(leagueID uuid.UUID)) {
	m.onClosed = fn
}

func (m *Manager) leagueRound(leagueID uuid.UUID) *leagueRound {
	m.mu.Lock()
	defer m.mu.Unlock()
	lr, ok := m.rounds[leagueID]
	if !ok {
		lr = &leagueRound{}
		m.rounds[leagueID] = lr
	}
	return lr
}

// Open seeds a new round for the queue item and starts the countdown.
// Fails with ErrRoundInProgress while another round is active.
func (m *Manager) Open(ctx context.Context, item models.QueueItem, participants []models.Participant) error {
	lr := m.leagueRound(item.LeagueID)
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.round != nil && lr.round.Active {
		return ErrRoundInProgress
	}

	lr.participants = participants
	lr.round = &models.BiddingRound{
		LeagueID:    item.LeagueID,
		QueueItemID: item.ID,
		Player:      item.Player,
		State:       models.RoundStateOpen,
		Active:      true,
		Bids:        []models.Bid{},
		Skipped:     make(map[uuid.UUID]struct{}),
		OpenedAt:    m.clock.Now(),
	}

	m.scheduleExpiry(item.LeagueID, 0)

	log.Info().
		Str("league_id", item.LeagueID.String()).
		Str("player", item.Player.FullName).
		Float64("base_price", item.Player.BasePrice).
		Msg("bidding round opened")

	return nil
}

// Recover reconstructs a minimal open round when a signal arrives for a
// league believed to have an active round but whose in-memory state is
// gone (process restart, partial state loss). Availability over strict
// consistency; the ledger reconciles the rest.
func (m *Manager) Recover(ctx context.Context, item models.QueueItem, participants []models.Participant) error {
	lr := m.leagueRound(item.LeagueID)
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.round != nil && lr.round.Active {
		return ErrRoundInProgress
	}

	lr.participants = participants
	lr.round = &models.BiddingRound{
		LeagueID:    item.LeagueID,
		QueueItemID: item.ID,
		Player:      item.Player,
		State:       models.RoundStateOpen,
		Active:      true,
		Bids:        []models.Bid{},
		Skipped:     make(map[uuid.UUID]struct{}),
		OpenedAt:    m.clock.Now(),
		Recovered:   true,
	}

	m.scheduleExpiry(item.LeagueID, 0)

	log.Warn().
		Str("league_id", item.LeagueID.String()).
		Str("player", item.Player.FullName).
		Msg("round state missing; reconstructed minimal round from ledger")

	return nil
}

// Round returns a copy of the league's current round, or nil.
func (m *Manager) Round(leagueID uuid.UUID) *models.BiddingRound {
	lr := m.leagueRound(leagueID)
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.round == nil {
		return nil
	}
	cp := *lr.round
	return &cp
}

// PlaceBid applies a bid signal from the participant. Bids from
// participants who already skipped, or from non-participants, are
// rejected silently; bids after the round left OPEN are ignored.
func (m *Manager) PlaceBid(ctx context.Context, leagueID, participantID uuid.UUID) error {
	lr := m.leagueRound(leagueID)
	lr.mu.Lock()

	rnd := lr.round
	if rnd == nil || !rnd.Active || rnd.State != models.RoundStateOpen {
		lr.mu.Unlock()
		return ErrNoActiveRound
	}

	p, ok := findParticipant(lr.participants, participantID)
	if !ok {
		lr.mu.Unlock()
		log.Debug().
			Str("league_id", leagueID.String()).
			Str("participant_id", participantID.String()).
			Msg("bid from non-participant ignored")
		return nil
	}

	if rnd.HasSkipped(participantID) {
		lr.mu.Unlock()
		log.Debug().
			Str("league_id", leagueID.String()).
			Str("participant_id", participantID.String()).
			Msg("bid after skip ignored")
		return nil
	}

	rnd.BidCount++
	bid := models.Bid{
		ParticipantID: participantID,
		TeamName:      p.TeamName,
		BidNumber:     rnd.BidCount,
		PlacedAt:      m.clock.Now(),
	}
	rnd.Bids = append(rnd.Bids, bid)
	rnd.LastBidder = &bid

	price := CurrentPrice(rnd.Player.BasePrice, rnd.BidCount, m.cfg.BidIncrement)
	rndCopy := *rnd

	// A fresh countdown replaces the outstanding timer before any other
	// signal for this league can be processed.
	m.scheduleExpiry(leagueID, rnd.BidCount)
	lr.mu.Unlock()

	m.notifier.Announce(ctx, leagueID,
		fmt.Sprintf("%s bids for %s. Current price: %.2f", p.TeamName, rndCopy.Player.FullName, price))

	if err := m.reporter.ReportBid(ctx, &rndCopy, bid, price); err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to report bid")
	}

	return nil
}

// Skip applies a skip signal. Idempotent; when every known participant
// has skipped, the round finalizes as SKIPPED immediately.
func (m *Manager) Skip(ctx context.Context, leagueID, participantID uuid.UUID) error {
	lr := m.leagueRound(leagueID)
	lr.mu.Lock()

	rnd := lr.round
	if rnd == nil || !rnd.Active || rnd.State != models.RoundStateOpen {
		lr.mu.Unlock()
		return ErrNoActiveRound
	}

	if _, ok := findParticipant(lr.participants, participantID); !ok {
		lr.mu.Unlock()
		log.Debug().
			Str("league_id", leagueID.String()).
			Str("participant_id", participantID.String()).
			Msg("skip from non-participant ignored")
		return nil
	}

	rnd.Skipped[participantID] = struct{}{}

	if len(rnd.Skipped) < len(lr.participants) {
		lr.mu.Unlock()
		return nil
	}

	// Unanimous skip: finalize now, no timer wait.
	closed := m.finalizeLocked(ctx, lr, true)
	lr.mu.Unlock()
	m.afterClose(leagueID, closed)
	return nil
}

// Finalize closes the league's round with zero additional delay. Safe to
// call while a timer is pending and safe to call twice: finalizing an
// already-closed round is a no-op.
func (m *Manager) Finalize(ctx context.Context, leagueID uuid.UUID) error {
	lr := m.leagueRound(leagueID)
	lr.mu.Lock()

	if lr.round == nil || !lr.round.Active {
		lr.mu.Unlock()
		return nil
	}

	closed := m.finalizeLocked(ctx, lr, false)
	lr.mu.Unlock()
	m.afterClose(leagueID, closed)
	return nil
}

// Clear drops all round state for the league and cancels its timer.
// Used by admin reset.
func (m *Manager) Clear(leagueID uuid.UUID) {
	lr := m.leagueRound(leagueID)
	lr.mu.Lock()
	lr.round = nil
	lr.participants = nil
	lr.mu.Unlock()
	m.sched.CancelLeague(leagueID)
}

// scheduleExpiry arms the countdown. The callback captures the bid count
// at scheduling time: if more bids arrive before it runs, the fire is
// stale and must not finalize anything.
func (m *Manager) scheduleExpiry(leagueID uuid.UUID, bidCountAtSchedule int) {
	m.sched.Schedule(leagueID, m.cfg.Countdown, func() {
		m.expire(context.Background(), leagueID, bidCountAtSchedule)
	})
}

func (m *Manager) expire(ctx context.Context, leagueID uuid.UUID, expectedBidCount int) {
	lr := m.leagueRound(leagueID)
	lr.mu.Lock()

	rnd := lr.round
	if rnd == nil || !rnd.Active || rnd.State != models.RoundStateOpen {
		lr.mu.Unlock()
		return
	}
	if rnd.BidCount != expectedBidCount {
		// Bids arrived after this timer was armed; the reschedule owns
		// the round now.
		lr.mu.Unlock()
		log.Debug().Str("league_id", leagueID.String()).Msg("stale expiry ignored")
		return
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("player", rnd.Player.FullName).
		Int("bid_count", rnd.BidCount).
		Msg("round countdown expired")

	closed := m.finalizeLocked(ctx, lr, false)
	lr.mu.Unlock()
	m.afterClose(leagueID, closed)
}

// finalizeLocked runs the FINALIZING logic. Caller holds lr.mu. Returns
// true when the round reached a terminal state.
//
// Local state always reaches terminal: a reporter (ledger) failure is
// logged and surfaced as a technical notice, never left as a dangling
// active round and never retried here; a failed finalize is
// operator-recoverable, a duplicate charge is not.
func (m *Manager) finalizeLocked(ctx context.Context, lr *leagueRound, unanimousSkip bool) bool {
	rnd := lr.round
	if rnd == nil || !rnd.Active {
		return false
	}

	rnd.State = models.RoundStateFinalizing
	rndCopy := *rnd

	defer func() {
		rnd.Active = false
		lr.round = nil
		m.sched.CancelLeague(rnd.LeagueID)
	}()

	if rnd.BidCount == 0 || unanimousSkip {
		rnd.State = models.RoundStateSkipped
		if err := m.reporter.ReportSkipped(ctx, &rndCopy, unanimousSkip); err != nil {
			log.Error().Err(err).
				Str("league_id", rnd.LeagueID.String()).
				Str("player", rnd.Player.FullName).
				Msg("failed to report skipped round")
			m.notifier.Announce(ctx, rnd.LeagueID,
				"A technical issue occurred while closing this round. An admin can re-run finalize.")
		}
		return true
	}

	winner := *rnd.LastBidder
	finalPrice := CurrentPrice(rnd.Player.BasePrice, rnd.BidCount, m.cfg.BidIncrement)
	rnd.State = models.RoundStateResolved

	if err := m.reporter.ReportResolved(ctx, &rndCopy, winner, finalPrice); err != nil {
		log.Error().Err(err).
			Str("league_id", rnd.LeagueID.String()).
			Str("player", rnd.Player.FullName).
			Str("winner_id", winner.ParticipantID.String()).
			Msg("failed to report resolved round")
		m.notifier.Announce(ctx, rnd.LeagueID,
			"A technical issue occurred while closing this round. An admin can re-run finalize.")
	}
	return true
}

func (m *Manager) afterClose(leagueID uuid.UUID, closed bool) {
	if closed && m.onClosed != nil {
		m.onClosed(leagueID)
	}
}

func findParticipant(participants []models.Participant, id uuid.UUID) (models.Participant, bool) {
	for _, p := range participants {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}
