package release

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/devpatel10/gully/go/internal/auction/timer"
	"github.com/devpatel10/gully/go/internal/ledger"
	"github.com/devpatel10/gully/go/internal/models"
)

// Notifier mirrors the round package's chat port.
type Notifier interface {
	Announce(ctx context.Context, leagueID uuid.UUID, text string)
	Whisper(ctx context.Context, participant models.Participant, text string)
}

// Config holds the release window tunables.
type Config struct {
	WindowDuration time.Duration
}

// DefaultConfig returns the reference window length of one minute.
func DefaultConfig() Config {
	return Config{WindowDuration: time.Minute}
}

// Manager runs the pre-auction release window: a fixed phase in which
// every participant may voluntarily return uncontested picks to the
// pool before they are locked as owned.
type Manager struct {
	cfg      Config
	clock    clockwork.Clock
	sched    *timer.Scheduler
	store    ledger.Store
	notifier Notifier

	// onClosed runs after the window closes (outside all locks) so the
	// queue driver can start pulling contested players.
	onClosed func(leagueID uuid.UUID)

	mu      sync.Mutex
	windows map[uuid.UUID]*window
}

type window struct {
	mu           sync.Mutex
	state        *models.ReleaseWindowState
	participants []models.Participant
	// snapshots is the authoritative ownership view taken at open time;
	// client selections are validated against it, never trusted.
	snapshots    map[uuid.UUID]models.ParticipantSnapshot
}

func NewManager(cfg Config, clock clockwork.Clock, sched *timer.Scheduler, store ledger.Store, notifier Notifier) *Manager {
	return &Manager{
		cfg:      cfg,
		clock:    clock,
		sched:    sched,
		store:    store,
		notifier: notifier,
		windows:  make(map[uuid.UUID]*window),
	}
}

// SetOnClosed registers the window-closed hook. Must be called before
// Open.
func (m *Manager) SetOnClosed(fn func(leagueID uuid.UUID)) {
	m.onClosed = fn
}

// WindowDuration reports the configured window length.
func (m *Manager) WindowDuration() time.Duration {
	return m.cfg.WindowDuration
}

func (m *Manager) window(leagueID uuid.UUID) *window {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[leagueID]
	if !ok {
		w = &window{}
		m.windows[leagueID] = w
	}
	return w
}

// Open starts the release window for the league, snapshots ownership,
// notifies everyone, and schedules the single delayed closure.
func (m *Manager) Open(ctx context.Context, leagueID uuid.UUID, participants []models.Participant) error {
	w := m.window(leagueID)
	w.mu.Lock()

	if w.state != nil && w.state.IsOpen {
		w.mu.Unlock()
		return fmt.Errorf("release window already open for league %s", leagueID)
	}

	now := m.clock.Now()
	snapshots := make(map[uuid.UUID]models.ParticipantSnapshot, len(participants))
	for _, p := range participants {
		players, err := m.store.GetUncontestedPlayers(ctx, p.ID)
		if err != nil {
			// Degrade to an empty set: the participant simply has nothing
			// selectable, and close-time keep-all still fires for them.
			log.Error().Err(err).
				Str("participant_id", p.ID.String()).
				Msg("failed to snapshot uncontested players")
			snapshots[p.ID] = models.ParticipantSnapshot{Participant: p, FetchedAt: now}
			continue
		}
		ownedBy := make([]uuid.UUID, 0, len(players))
		for _, pl := range players {
			ownedBy = append(ownedBy, pl.ID)
		}
		snapshots[p.ID] = models.ParticipantSnapshot{Participant: p, OwnedBy: ownedBy, FetchedAt: now}
	}

	w.participants = participants
	w.snapshots = snapshots
	w.state = &models.ReleaseWindowState{
		LeagueID:           leagueID,
		IsOpen:             true,
		OpenedAt:           now,
		SelectedForRelease: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		Submitted:          make(map[uuid.UUID]struct{}),
	}
	w.mu.Unlock()

	m.sched.Schedule(leagueID, m.cfg.WindowDuration, func() {
		m.close(context.Background(), leagueID)
	})

	m.notifier.Announce(ctx, leagueID, fmt.Sprintf(
		"Release window open for %s: reply with the uncontested players you want to return. Unsubmitted squads keep everything.",
		m.cfg.WindowDuration))
	for _, p := range participants {
		m.notifier.Whisper(ctx, p, fmt.Sprintf(
			"You hold %d uncontested pick(s). Select and submit any you want to release before the window closes.",
			len(snapshots[p.ID].OwnedBy)))
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Dur("duration", m.cfg.WindowDuration).
		Int("participants", len(participants)).
		Msg("release window opened")

	return nil
}

// SelectForRelease toggles a player into the participant's release set.
func (m *Manager) SelectForRelease(ctx context.Context, leagueID, participantID, playerID uuid.UUID) error {
	w := m.window(leagueID)
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkOpen(participantID); err != nil {
		return err
	}
	if !w.snapshots[participantID].Owns(playerID) {
		return ErrNotOwned
	}

	sel := w.state.SelectedForRelease[participantID]
	if sel == nil {
		sel = make(map[uuid.UUID]struct{})
		w.state.SelectedForRelease[participantID] = sel
	}
	sel[playerID] = struct{}{}
	return nil
}

// Deselect removes a player from the participant's release set.
func (m *Manager) Deselect(ctx context.Context, leagueID, participantID, playerID uuid.UUID) error {
	w := m.window(leagueID)
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkOpen(participantID); err != nil {
		return err
	}
	delete(w.state.SelectedForRelease[participantID], playerID)
	return nil
}

// Submit validates the given ids against the ownership snapshot, writes
// the validated subset to the ledger, and marks the participant done.
func (m *Manager) Submit(ctx context.Context, leagueID, participantID uuid.UUID, playerIDs []uuid.UUID) error {
	w := m.window(leagueID)
	w.mu.Lock()

	if err := w.checkOpen(participantID); err != nil {
		w.mu.Unlock()
		return err
	}

	snap := w.snapshots[participantID]
	validated := make([]uuid.UUID, 0, len(playerIDs))
	for _, id := range playerIDs {
		if !snap.Owns(id) {
			w.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrNotOwned, id)
		}
		validated = append(validated, id)
	}

	w.state.Submitted[participantID] = struct{}{}
	delete(w.state.SelectedForRelease, participantID)
	w.mu.Unlock()

	result, err := m.store.ReleasePlayers(ctx, participantID, validated)
	if err != nil {
		return fmt.Errorf("failed to submit release: %w", err)
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("participant_id", participantID.String()).
		Int("released", result.ReleasedCount).
		Msg("release submitted")

	return nil
}

// State returns a snapshot of the window state, or nil.
func (m *Manager) State(leagueID uuid.UUID) *models.ReleaseWindowState {
	w := m.window(leagueID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == nil {
		return nil
	}
	cp := *w.state
	return &cp
}

// Clear drops the window state and cancels its timer. Used by admin
// reset.
func (m *Manager) Clear(leagueID uuid.UUID) {
	w := m.window(leagueID)
	w.mu.Lock()
	w.state = nil
	w.participants = nil
	w.snapshots = nil
	w.mu.Unlock()
	m.sched.CancelLeague(leagueID)
}

// close ends the window. Every participant who never submitted gets an
// explicit empty release call: keep-all must be a real ledger call so
// the uncontested-to-owned transition is never left implicit. A single
// participant's failure is logged and never blocks the rest.
func (m *Manager) close(ctx context.Context, leagueID uuid.UUID) {
	w := m.window(leagueID)
	w.mu.Lock()

	if w.state == nil || !w.state.IsOpen {
		w.mu.Unlock()
		return
	}
	w.state.IsOpen = false

	var pending []models.Participant
	for _, p := range w.participants {
		if _, ok := w.state.Submitted[p.ID]; !ok {
			pending = append(pending, p)
		}
	}
	submitted := len(w.state.Submitted)
	w.mu.Unlock()

	for _, p := range pending {
		if _, err := m.store.ReleasePlayers(ctx, p.ID, []uuid.UUID{}); err != nil {
			log.Error().Err(err).
				Str("league_id", leagueID.String()).
				Str("participant_id", p.ID.String()).
				Msg("keep-all release failed; continuing with remaining participants")
		}
	}

	m.notifier.Announce(ctx, leagueID,
		"Release window closed. Unreturned picks are locked in. Contested bidding starts now.")

	log.Info().
		Str("league_id", leagueID.String()).
		Int("submitted", submitted).
		Int("auto_resolved", len(pending)).
		Msg("release window closed")

	if m.onClosed != nil {
		m.onClosed(leagueID)
	}
}

func (w *window) checkOpen(participantID uuid.UUID) error {
	if w.state == nil || !w.state.IsOpen {
		return ErrWindowClosed
	}
	if _, ok := w.state.Submitted[participantID]; ok {
		return ErrAlreadySubmitted
	}
	if _, ok := w.snapshots[participantID]; !ok {
		return ErrNotOwned
	}
	return nil
}
