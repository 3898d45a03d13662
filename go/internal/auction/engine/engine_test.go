package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/devpatel10/gully/go/internal/auction/release"
	"github.com/devpatel10/gully/go/internal/auction/round"
	"github.com/devpatel10/gully/go/internal/auction/settle"
	"github.com/devpatel10/gully/go/internal/auction/timer"
	"github.com/devpatel10/gully/go/internal/ledger"
	"github.com/devpatel10/gully/go/internal/models"
)

// queueStore is an in-memory ledger.Store backed by a slice of queue
// items.
type queueStore struct {
	mu           sync.Mutex
	items        []models.QueueItem
	participants []models.Participant
	sales        map[uuid.UUID]float64 // player id -> final price
	failNext     bool                  // fail the next queue fetch once
}

func newQueueStore(participants []models.Participant, items []models.QueueItem) *queueStore {
	return &queueStore{
		items:        items,
		participants: participants,
		sales:        make(map[uuid.UUID]float64),
	}
}

func (s *queueStore) GetNextQueueItem(ctx context.Context, leagueID uuid.UUID) (*models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return nil, errors.New("transient queue fetch failure")
	}
	for i := range s.items {
		if s.items[i].LeagueID == leagueID && s.items[i].Status == models.QueueItemStatusPending {
			item := s.items[i]
			return &item, nil
		}
	}
	return nil, ledger.ErrQueueEmpty
}

func (s *queueStore) ResolveContestedPlayer(ctx context.Context, playerID, winnerID, queueItemID uuid.UUID, finalPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == queueItemID && s.items[i].Status == models.QueueItemStatusPending {
			s.items[i].Status = models.QueueItemStatusResolved
			s.sales[playerID] = finalPrice
		}
	}
	return nil
}

func (s *queueStore) SkipPlayer(ctx context.Context, leagueID, queueItemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == queueItemID && s.items[i].Status == models.QueueItemStatusPending {
			s.items[i].Status = models.QueueItemStatusSkipped
		}
	}
	return nil
}

func (s *queueStore) status(queueItemID uuid.UUID) models.QueueItemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == queueItemID {
			return s.items[i].Status
		}
	}
	return ""
}

func (s *queueStore) ReleasePlayers(ctx context.Context, participantID uuid.UUID, playerIDs []uuid.UUID) (*models.ReleaseResult, error) {
	return &models.ReleaseResult{ReleasedPlayers: playerIDs, ReleasedCount: len(playerIDs)}, nil
}

func (s *queueStore) GetParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error) {
	return s.participants, nil
}

func (s *queueStore) GetUncontestedPlayers(ctx context.Context, participantID uuid.UUID) ([]models.Player, error) {
	return nil, nil
}

// recordingOutbox satisfies both the engine's and settlement's outbox
// needs and records inserted event types in order.
type recordingOutbox struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingOutbox) record(eventType string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, eventType)
	return nil
}

func (o *recordingOutbox) InsertAuctionStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return o.record("AuctionStarted")
}
func (o *recordingOutbox) InsertAuctionCompleted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return o.record("AuctionCompleted")
}
func (o *recordingOutbox) InsertWindowOpened(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return o.record("WindowOpened")
}
func (o *recordingOutbox) InsertWindowClosed(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return o.record("WindowClosed")
}
func (o *recordingOutbox) InsertRoundStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return o.record("RoundStarted")
}
func (o *recordingOutbox) InsertBidPlaced(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return o.record("BidPlaced")
}
func (o *recordingOutbox) InsertRoundResolved(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return o.record("RoundResolved")
}
func (o *recordingOutbox) InsertRoundSkipped(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return o.record("RoundSkipped")
}

func (o *recordingOutbox) has(eventType string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.events {
		if e == eventType {
			return true
		}
	}
	return false
}

type silentNotifier struct{}

func (silentNotifier) Announce(ctx context.Context, leagueID uuid.UUID, text string)  {}
func (silentNotifier) Whisper(ctx context.Context, p models.Participant, text string) {}

type fixture struct {
	clock        *clockwork.FakeClock
	eng          *Engine
	rounds       *round.Manager
	window       *release.Manager
	store        *queueStore
	outbox       *recordingOutbox
	leagueID     uuid.UUID
	participants []models.Participant
	items        []models.QueueItem
}

func newFixture(t *testing.T, queueLen int) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	leagueID := uuid.New()

	participants := []models.Participant{
		{ID: uuid.New(), LeagueID: leagueID, TeamName: "Chepauk Kings", Budget: 100},
		{ID: uuid.New(), LeagueID: leagueID, TeamName: "Wankhede XI", Budget: 100},
	}

	items := make([]models.QueueItem, queueLen)
	for i := range items {
		items[i] = models.QueueItem{
			ID:       uuid.New(),
			LeagueID: leagueID,
			Position: i + 1,
			Status:   models.QueueItemStatusPending,
			Player: models.Player{
				ID:        uuid.New(),
				FullName:  "Player " + string(rune('A'+i)),
				Team:      "Chennai",
				Role:      models.PlayerRoleAllRounder,
				BasePrice: 2.0,
			},
		}
	}

	store := newQueueStore(participants, items)
	outbox := &recordingOutbox{}
	notifier := silentNotifier{}

	reporter := settle.NewReporter(store, outbox, notifier, clock)

	roundCfg := round.DefaultConfig()
	rounds := round.NewManager(roundCfg, clock, timer.NewScheduler(clock), notifier, reporter)
	window := release.NewManager(release.DefaultConfig(), clock, timer.NewScheduler(clock), store, notifier)

	eng := NewEngine(store, rounds, window, notifier, outbox, clock, roundCfg)
	reporter.SetTally(eng)

	return &fixture{
		clock:        clock,
		eng:          eng,
		rounds:       rounds,
		window:       window,
		store:        store,
		outbox:       outbox,
		leagueID:     leagueID,
		participants: participants,
		items:        items,
	}
}

func (fx *fixture) waitForRound(t *testing.T, queueItemID uuid.UUID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rnd := fx.rounds.Round(fx.leagueID)
		if rnd != nil && rnd.Active && rnd.QueueItemID == queueItemID {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("round for queue item %s never opened", queueItemID)
}

// startAndCloseWindow drives the fixture through Start and the release
// window so the first contested round is on the block.
func (fx *fixture) startAndCloseWindow(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.eng.Start(context.Background(), fx.leagueID))
	fx.clock.BlockUntil(1)
	fx.clock.Advance(time.Minute)
	fx.waitForRound(t, fx.items[0].ID)
}

func TestStartOpensReleaseWindow(t *testing.T) {
	fx := newFixture(t, 1)
	ctx := context.Background()

	require.NoError(t, fx.eng.Start(ctx, fx.leagueID))

	session := fx.eng.Session(fx.leagueID)
	require.NotNil(t, session)
	require.True(t, session.IsActive)

	state := fx.window.State(fx.leagueID)
	require.NotNil(t, state)
	require.True(t, state.IsOpen)

	require.True(t, fx.outbox.has("AuctionStarted"))
	require.True(t, fx.outbox.has("WindowOpened"))
}

func TestStartTwiceRejected(t *testing.T) {
	fx := newFixture(t, 1)
	ctx := context.Background()

	require.NoError(t, fx.eng.Start(ctx, fx.leagueID))
	require.ErrorIs(t, fx.eng.Start(ctx, fx.leagueID), ErrAuctionInProgress)
}

func TestNextWithoutSessionRejected(t *testing.T) {
	fx := newFixture(t, 1)
	require.ErrorIs(t, fx.eng.Next(context.Background(), fx.leagueID), ErrNoActiveAuction)
}

func TestWindowCloseOpensFirstRound(t *testing.T) {
	fx := newFixture(t, 2)
	fx.startAndCloseWindow(t)

	require.True(t, fx.outbox.has("WindowClosed"))
	require.True(t, fx.outbox.has("RoundStarted"))

	rnd := fx.rounds.Round(fx.leagueID)
	require.NotNil(t, rnd)
	require.Equal(t, fx.items[0].Player.ID, rnd.Player.ID)
}

func TestNextWhileRoundOpenRejected(t *testing.T) {
	fx := newFixture(t, 2)
	fx.startAndCloseWindow(t)

	require.ErrorIs(t, fx.eng.Next(context.Background(), fx.leagueID), round.ErrRoundInProgress)
}

func TestResolvedRoundAdvancesQueue(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()
	fx.startAndCloseWindow(t)

	require.NoError(t, fx.eng.HandleBid(ctx, fx.leagueID, fx.participants[0].ID))
	require.NoError(t, fx.eng.Finalize(ctx, fx.leagueID))

	// Settlement committed the sale and the engine moved to the next
	// queue item on its own.
	fx.waitForRound(t, fx.items[1].ID)
	require.Equal(t, 2.0, fx.store.sales[fx.items[0].Player.ID])
	require.True(t, fx.outbox.has("RoundResolved"))
}

func TestQueueExhaustionCompletesSession(t *testing.T) {
	fx := newFixture(t, 1)
	ctx := context.Background()
	fx.startAndCloseWindow(t)

	require.NoError(t, fx.eng.HandleBid(ctx, fx.leagueID, fx.participants[1].ID))
	require.NoError(t, fx.eng.Finalize(ctx, fx.leagueID))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := fx.eng.Session(fx.leagueID); s != nil && !s.IsActive {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	session := fx.eng.Session(fx.leagueID)
	require.NotNil(t, session)
	require.False(t, session.IsActive)
	require.True(t, fx.outbox.has("AuctionCompleted"))
}

func TestHandleBidRecoversLostRoundState(t *testing.T) {
	fx := newFixture(t, 1)
	ctx := context.Background()
	fx.startAndCloseWindow(t)

	// Simulate in-memory round state loss mid-auction.
	fx.rounds.Clear(fx.leagueID)
	require.Nil(t, fx.rounds.Round(fx.leagueID))

	require.NoError(t, fx.eng.HandleBid(ctx, fx.leagueID, fx.participants[0].ID))

	rnd := fx.rounds.Round(fx.leagueID)
	require.NotNil(t, rnd)
	require.True(t, rnd.Recovered)
	require.Equal(t, 1, rnd.BidCount)
}

func TestBidAfterSettlementIsDropped(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()
	fx.startAndCloseWindow(t)

	require.NoError(t, fx.eng.HandleBid(ctx, fx.leagueID, fx.participants[0].ID))

	// Make the post-settlement queue advance fail once, leaving the
	// league in the gap between a settled round and the next opening.
	fx.store.mu.Lock()
	fx.store.failNext = true
	fx.store.mu.Unlock()
	require.NoError(t, fx.eng.Finalize(ctx, fx.leagueID))
	require.Nil(t, fx.rounds.Round(fx.leagueID))

	// A bid in that gap must not resurrect the player that was just
	// sold.
	require.NoError(t, fx.eng.HandleBid(ctx, fx.leagueID, fx.participants[1].ID))
	require.Nil(t, fx.rounds.Round(fx.leagueID))
	require.Equal(t, models.QueueItemStatusResolved, fx.store.status(fx.items[0].ID))
	require.Equal(t, 2.0, fx.store.sales[fx.items[0].Player.ID])

	// The queue still advances to the real next player.
	require.NoError(t, fx.eng.Next(ctx, fx.leagueID))
	rnd := fx.rounds.Round(fx.leagueID)
	require.NotNil(t, rnd)
	require.Equal(t, fx.items[1].Player.ID, rnd.Player.ID)
}

func TestHandleSkipWithoutRoundIsNoOp(t *testing.T) {
	fx := newFixture(t, 1)
	require.NoError(t, fx.eng.HandleSkip(context.Background(), fx.leagueID, fx.participants[0].ID))
}

func TestResetTearsDownState(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()
	fx.startAndCloseWindow(t)

	require.NoError(t, fx.eng.Reset(ctx, fx.leagueID))

	require.Nil(t, fx.eng.Session(fx.leagueID))
	require.Nil(t, fx.rounds.Round(fx.leagueID))
	require.ErrorIs(t, fx.eng.Next(ctx, fx.leagueID), ErrNoActiveAuction)
}
