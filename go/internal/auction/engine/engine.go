package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/devpatel10/gully/go/internal/auction/events"
	"github.com/devpatel10/gully/go/internal/auction/release"
	"github.com/devpatel10/gully/go/internal/auction/round"
	"github.com/devpatel10/gully/go/internal/ledger"
	"github.com/devpatel10/gully/go/internal/models"
)

// OutboxApp defines what the engine needs from the outbox.
type OutboxApp interface {
	InsertAuctionStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertAuctionCompleted(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertWindowOpened(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertWindowClosed(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertRoundStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error
}

// Engine is the auction queue driver: it serializes contested-player
// resolution per league, one bidding round at a time, between the
// release window up front and ledger settlement at the back.
type Engine struct {
	store    ledger.Store
	rounds   *round.Manager
	window   *release.Manager
	notifier round.Notifier
	outbox   OutboxApp
	clock    clockwork.Clock
	cfg      round.Config

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	models.AuctionSession
	participants []models.Participant
	current      *models.QueueItem
	resolved     int
	skipped      int
}

func NewEngine(store ledger.Store, rounds *round.Manager, window *release.Manager, notifier round.Notifier, outbox OutboxApp, clock clockwork.Clock, cfg round.Config) *Engine {
	e := &Engine{
		store:    store,
		rounds:   rounds,
		window:   window,
		notifier: notifier,
		outbox:   outbox,
		clock:    clock,
		cfg:      cfg,
		sessions: make(map[uuid.UUID]*session),
	}

	rounds.SetOnClosed(e.onRoundClosed)
	window.SetOnClosed(e.onWindowClosed)

	return e
}

// Start begins an auction cycle: creates the session, snapshots the
// participants, and opens the release window. Contested bidding starts
// automatically when the window closes.
func (e *Engine) Start(ctx context.Context, leagueID uuid.UUID) error {
	e.mu.Lock()
	if s, ok := e.sessions[leagueID]; ok && s.IsActive {
		e.mu.Unlock()
		return ErrAuctionInProgress
	}
	e.mu.Unlock()

	participants, err := e.store.GetParticipants(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	if len(participants) == 0 {
		return fmt.Errorf("league %s has no participants", leagueID)
	}

	now := e.clock.Now()
	e.mu.Lock()
	e.sessions[leagueID] = &session{
		AuctionSession: models.AuctionSession{
			LeagueID:  leagueID,
			IsActive:  true,
			StartedAt: now,
		},
		participants: participants,
	}
	e.mu.Unlock()

	e.emit(ctx, leagueID, e.outbox.InsertAuctionStarted, events.AuctionStartedPayload{
		LeagueID:     leagueID.String(),
		Participants: len(participants),
		StartedAt:    now,
	})

	if err := e.window.Open(ctx, leagueID, participants); err != nil {
		return fmt.Errorf("failed to open release window: %w", err)
	}

	e.emit(ctx, leagueID, e.outbox.InsertWindowOpened, events.WindowOpenedPayload{
		LeagueID: leagueID.String(),
		OpenedAt: now,
		ClosesAt: now.Add(e.window.WindowDuration()),
	})

	log.Info().
		Str("league_id", leagueID.String()).
		Int("participants", len(participants)).
		Msg("auction cycle started")

	return nil
}

// Next pulls the next contested player and opens a bidding round for it.
// Fails with ErrNoActiveAuction when no session exists and
// ErrRoundInProgress while a round is still open; returns
// ErrQueueExhausted (after completing the session) when the queue is
// empty.
func (e *Engine) Next(ctx context.Context, leagueID uuid.UUID) error {
	e.mu.Lock()
	s, ok := e.sessions[leagueID]
	if !ok || !s.IsActive {
		e.mu.Unlock()
		return ErrNoActiveAuction
	}
	participants := s.participants
	e.mu.Unlock()

	if rnd := e.rounds.Round(leagueID); rnd != nil && rnd.Active {
		return round.ErrRoundInProgress
	}

	item, err := e.store.GetNextQueueItem(ctx, leagueID)
	if errors.Is(err, ledger.ErrQueueEmpty) {
		e.completeSession(ctx, leagueID)
		return ErrQueueExhausted
	}
	if err != nil {
		return fmt.Errorf("failed to fetch next queue item: %w", err)
	}

	if err := e.rounds.Open(ctx, *item, participants); err != nil {
		return err
	}

	e.mu.Lock()
	s.current = item
	s.QueueCursor++
	e.mu.Unlock()

	// Private per-participant summaries are best-effort; a missing chat
	// identity degrades to minimal-info participation.
	for _, p := range participants {
		e.notifier.Whisper(ctx, p, fmt.Sprintf(
			"Up next: %s (%s, %s) at base %.2f. Your budget: %.2f, squad size: %d.",
			item.Player.FullName, item.Player.Role, item.Player.Team,
			item.Player.BasePrice, p.Budget, p.RosterSize))
	}

	e.notifier.Announce(ctx, leagueID, fmt.Sprintf(
		"Now up for auction: %s (%s, %s) at base price %.2f. Reply \"bid\" or \"skip\".",
		item.Player.FullName, item.Player.Role, item.Player.Team, item.Player.BasePrice))

	now := e.clock.Now()
	e.emit(ctx, leagueID, e.outbox.InsertRoundStarted, events.RoundStartedPayload{
		LeagueID:    leagueID.String(),
		QueueItemID: item.ID.String(),
		PlayerID:    item.Player.ID.String(),
		PlayerName:  item.Player.FullName,
		BasePrice:   item.Player.BasePrice,
		OpenedAt:    now,
		TimeoutAt:   now.Add(e.cfg.Countdown),
	})

	return nil
}

// Finalize closes the current round with zero additional delay, whether
// or not its countdown is still pending.
func (e *Engine) Finalize(ctx context.Context, leagueID uuid.UUID) error {
	e.mu.Lock()
	s, ok := e.sessions[leagueID]
	if !ok || !s.IsActive {
		e.mu.Unlock()
		return ErrNoActiveAuction
	}
	e.mu.Unlock()

	return e.rounds.Finalize(ctx, leagueID)
}

// Reset tears down all auction state for the league: session, round,
// window, and timers. Admin-only escape hatch.
func (e *Engine) Reset(ctx context.Context, leagueID uuid.UUID) error {
	e.mu.Lock()
	delete(e.sessions, leagueID)
	e.mu.Unlock()

	e.rounds.Clear(leagueID)
	e.window.Clear(leagueID)

	e.notifier.Announce(ctx, leagueID, "Auction state was reset by the league admin.")
	log.Info().Str("league_id", leagueID.String()).Msg("auction state reset")
	return nil
}

// HandleBid routes a bid signal from chat into the round state machine,
// reconstructing missing round state from the ledger when needed rather
// than silently dropping the bid.
func (e *Engine) HandleBid(ctx context.Context, leagueID, participantID uuid.UUID) error {
	err := e.rounds.PlaceBid(ctx, leagueID, participantID)
	if !errors.Is(err, round.ErrNoActiveRound) {
		return err
	}

	e.mu.Lock()
	s, ok := e.sessions[leagueID]
	if !ok || !s.IsActive {
		e.mu.Unlock()
		return ErrNoActiveAuction
	}
	item := s.current
	participants := s.participants
	e.mu.Unlock()

	// Reconstruction is only legal while the remembered item is still
	// the head of the pending queue. A bid landing in the gap between
	// settlement and the next round opening must be dropped, not used
	// to resurrect the player that was just sold.
	head, ferr := e.store.GetNextQueueItem(ctx, leagueID)
	if errors.Is(ferr, ledger.ErrQueueEmpty) {
		log.Debug().
			Str("league_id", leagueID.String()).
			Msg("bid with no pending queue item dropped")
		return nil
	}
	if ferr != nil {
		return fmt.Errorf("failed to reconstruct round state: %w", ferr)
	}
	if item != nil && item.ID != head.ID {
		log.Debug().
			Str("league_id", leagueID.String()).
			Str("queue_item_id", item.ID.String()).
			Msg("bid for a settled round dropped")
		return nil
	}

	if rerr := e.rounds.Recover(ctx, *head, participants); rerr != nil && !errors.Is(rerr, round.ErrRoundInProgress) {
		return rerr
	}
	return e.rounds.PlaceBid(ctx, leagueID, participantID)
}

// HandleSkip routes a skip signal from chat into the round state machine.
func (e *Engine) HandleSkip(ctx context.Context, leagueID, participantID uuid.UUID) error {
	err := e.rounds.Skip(ctx, leagueID, participantID)
	if errors.Is(err, round.ErrNoActiveRound) {
		// Skips never justify reconstructing state.
		return nil
	}
	return err
}

// SelectForRelease, Deselect, and SubmitRelease forward release-window
// actions.
func (e *Engine) SelectForRelease(ctx context.Context, leagueID, participantID, playerID uuid.UUID) error {
	return e.window.SelectForRelease(ctx, leagueID, participantID, playerID)
}

func (e *Engine) Deselect(ctx context.Context, leagueID, participantID, playerID uuid.UUID) error {
	return e.window.Deselect(ctx, leagueID, participantID, playerID)
}

func (e *Engine) SubmitRelease(ctx context.Context, leagueID, participantID uuid.UUID, playerIDs []uuid.UUID) error {
	return e.window.Submit(ctx, leagueID, participantID, playerIDs)
}

// Session returns a copy of the league's auction session, or nil.
func (e *Engine) Session(leagueID uuid.UUID) *models.AuctionSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[leagueID]
	if !ok {
		return nil
	}
	cp := s.AuctionSession
	return &cp
}

// NoteResolved and NoteSkipped are the settlement tally hooks.
func (e *Engine) NoteResolved(leagueID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[leagueID]; ok {
		s.resolved++
	}
}

func (e *Engine) NoteSkipped(leagueID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[leagueID]; ok {
		s.skipped++
	}
}

// onWindowClosed starts contested bidding once the release window ends.
func (e *Engine) onWindowClosed(leagueID uuid.UUID) {
	ctx := context.Background()

	payload := events.WindowClosedPayload{
		LeagueID: leagueID.String(),
		ClosedAt: e.clock.Now(),
	}
	if st := e.window.State(leagueID); st != nil {
		payload.Submitted = len(st.Submitted)
		e.mu.Lock()
		if s, ok := e.sessions[leagueID]; ok {
			payload.AutoResolved = len(s.participants) - payload.Submitted
		}
		e.mu.Unlock()
	}
	e.emit(ctx, leagueID, e.outbox.InsertWindowClosed, payload)

	if err := e.Next(ctx, leagueID); err != nil && !errors.Is(err, ErrQueueExhausted) {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to start first round after release window")
	}
}

// onRoundClosed advances the queue after settlement.
func (e *Engine) onRoundClosed(leagueID uuid.UUID) {
	ctx := context.Background()
	if err := e.Next(ctx, leagueID); err != nil && !errors.Is(err, ErrQueueExhausted) {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to advance auction queue")
	}
}

func (e *Engine) completeSession(ctx context.Context, leagueID uuid.UUID) {
	e.mu.Lock()
	s, ok := e.sessions[leagueID]
	if !ok || !s.IsActive {
		e.mu.Unlock()
		return
	}
	s.IsActive = false
	resolved, skipped := s.resolved, s.skipped
	startedAt := s.StartedAt
	e.mu.Unlock()

	now := e.clock.Now()
	e.emit(ctx, leagueID, e.outbox.InsertAuctionCompleted, events.AuctionCompletedPayload{
		LeagueID:    leagueID.String(),
		CompletedAt: now,
		Duration:    now.Sub(startedAt).String(),
		Resolved:    resolved,
		SkippedOut:  skipped,
	})

	e.notifier.Announce(ctx, leagueID, fmt.Sprintf(
		"That's a wrap, auction complete. %d player(s) sold, %d passed over.", resolved, skipped))

	log.Info().
		Str("league_id", leagueID.String()).
		Int("resolved", resolved).
		Int("skipped", skipped).
		Msg("auction cycle completed")
}

// emit marshals and inserts an outbox event; failures are logged, never
// propagated into round flow.
func (e *Engine) emit(ctx context.Context, leagueID uuid.UUID, insert func(context.Context, uuid.UUID, []byte) error, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to marshal event payload")
		return
	}
	if err := insert(ctx, leagueID, data); err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to insert outbox event")
	}
}
