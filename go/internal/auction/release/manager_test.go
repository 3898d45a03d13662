package release

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/devpatel10/gully/go/internal/auction/timer"
	"github.com/devpatel10/gully/go/internal/ledger"
	"github.com/devpatel10/gully/go/internal/models"
)

type releaseCall struct {
	participantID uuid.UUID
	playerIDs     []uuid.UUID
}

// fakeStore implements ledger.Store with canned uncontested holdings.
type fakeStore struct {
	mu          sync.Mutex
	uncontested map[uuid.UUID][]models.Player
	releases    []releaseCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{uncontested: make(map[uuid.UUID][]models.Player)}
}

func (f *fakeStore) GetNextQueueItem(ctx context.Context, leagueID uuid.UUID) (*models.QueueItem, error) {
	return nil, ledger.ErrQueueEmpty
}

func (f *fakeStore) ResolveContestedPlayer(ctx context.Context, playerID, winnerID, queueItemID uuid.UUID, finalPrice float64) error {
	return nil
}

func (f *fakeStore) SkipPlayer(ctx context.Context, leagueID, queueItemID uuid.UUID) error {
	return nil
}

func (f *fakeStore) ReleasePlayers(ctx context.Context, participantID uuid.UUID, playerIDs []uuid.UUID) (*models.ReleaseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, releaseCall{participantID: participantID, playerIDs: playerIDs})
	return &models.ReleaseResult{ReleasedCount: len(playerIDs), ReleasedPlayers: playerIDs}, nil
}

func (f *fakeStore) GetParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error) {
	return nil, nil
}

func (f *fakeStore) GetUncontestedPlayers(ctx context.Context, participantID uuid.UUID) ([]models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uncontested[participantID], nil
}

func (f *fakeStore) releaseCalls() []releaseCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]releaseCall(nil), f.releases...)
}

type noopNotifier struct{}

func (noopNotifier) Announce(ctx context.Context, leagueID uuid.UUID, text string)        {}
func (noopNotifier) Whisper(ctx context.Context, p models.Participant, text string)       {}

type fixture struct {
	clock        *clockwork.FakeClock
	mgr          *Manager
	store        *fakeStore
	leagueID     uuid.UUID
	participants []models.Participant
	players      map[uuid.UUID][]models.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := newFakeStore()
	mgr := NewManager(DefaultConfig(), clock, timer.NewScheduler(clock), store, noopNotifier{})

	leagueID := uuid.New()
	participants := make([]models.Participant, 2)
	players := make(map[uuid.UUID][]models.Player)
	for i := range participants {
		participants[i] = models.Participant{ID: uuid.New(), LeagueID: leagueID, TeamName: "Team"}
		held := []models.Player{
			{ID: uuid.New(), FullName: "Uncontested One", BasePrice: 1.0},
			{ID: uuid.New(), FullName: "Uncontested Two", BasePrice: 1.5},
		}
		players[participants[i].ID] = held
		store.uncontested[participants[i].ID] = held
	}

	return &fixture{
		clock:        clock,
		mgr:          mgr,
		store:        store,
		leagueID:     leagueID,
		participants: participants,
		players:      players,
	}
}

func (fx *fixture) open(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.mgr.Open(context.Background(), fx.leagueID, fx.participants))
}

func TestSelectValidatesOwnership(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.open(t)

	p := fx.participants[0]
	owned := fx.players[p.ID][0].ID

	require.NoError(t, fx.mgr.SelectForRelease(ctx, fx.leagueID, p.ID, owned))

	// A player someone else holds is not selectable.
	other := fx.players[fx.participants[1].ID][0].ID
	require.ErrorIs(t, fx.mgr.SelectForRelease(ctx, fx.leagueID, p.ID, other), ErrNotOwned)

	// Neither is a player nobody holds.
	require.ErrorIs(t, fx.mgr.SelectForRelease(ctx, fx.leagueID, p.ID, uuid.New()), ErrNotOwned)
}

func TestDeselectRemovesSelection(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.open(t)

	p := fx.participants[0]
	owned := fx.players[p.ID][0].ID

	require.NoError(t, fx.mgr.SelectForRelease(ctx, fx.leagueID, p.ID, owned))
	require.NoError(t, fx.mgr.Deselect(ctx, fx.leagueID, p.ID, owned))

	state := fx.mgr.State(fx.leagueID)
	require.NotNil(t, state)
	require.Empty(t, state.SelectedForRelease[p.ID])
}

func TestSubmitWritesValidatedSubset(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.open(t)

	p := fx.participants[0]
	owned := fx.players[p.ID][0].ID

	require.NoError(t, fx.mgr.Submit(ctx, fx.leagueID, p.ID, []uuid.UUID{owned}))

	calls := fx.store.releaseCalls()
	require.Len(t, calls, 1)
	require.Equal(t, p.ID, calls[0].participantID)
	require.Equal(t, []uuid.UUID{owned}, calls[0].playerIDs)
}

func TestSubmitRejectsUnownedPlayer(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.open(t)

	p := fx.participants[0]
	err := fx.mgr.Submit(ctx, fx.leagueID, p.ID, []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, ErrNotOwned)
	require.Empty(t, fx.store.releaseCalls())
}

func TestSecondSubmitRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.open(t)

	p := fx.participants[0]
	require.NoError(t, fx.mgr.Submit(ctx, fx.leagueID, p.ID, nil))
	require.ErrorIs(t, fx.mgr.Submit(ctx, fx.leagueID, p.ID, nil), ErrAlreadySubmitted)
}

func TestActionsAfterCloseRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.open(t)

	closed := make(chan struct{})
	fx.mgr.SetOnClosed(func(uuid.UUID) { close(closed) })

	fx.clock.BlockUntil(1)
	fx.clock.Advance(time.Minute)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("window did not close")
	}

	p := fx.participants[0]
	owned := fx.players[p.ID][0].ID
	require.ErrorIs(t, fx.mgr.SelectForRelease(ctx, fx.leagueID, p.ID, owned), ErrWindowClosed)
	require.ErrorIs(t, fx.mgr.Submit(ctx, fx.leagueID, p.ID, nil), ErrWindowClosed)
}

func TestCloseRunsKeepAllForNonSubmitters(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.open(t)

	closed := make(chan struct{})
	fx.mgr.SetOnClosed(func(uuid.UUID) { close(closed) })

	// One participant submits a real release; the other never answers.
	submitter := fx.participants[0]
	released := fx.players[submitter.ID][1].ID
	require.NoError(t, fx.mgr.Submit(ctx, fx.leagueID, submitter.ID, []uuid.UUID{released}))

	fx.clock.BlockUntil(1)
	fx.clock.Advance(time.Minute)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("window did not close")
	}

	calls := fx.store.releaseCalls()
	require.Len(t, calls, 2)
	require.Equal(t, submitter.ID, calls[0].participantID)
	require.Equal(t, []uuid.UUID{released}, calls[0].playerIDs)

	// Keep-all for the silent participant is an explicit empty release.
	require.Equal(t, fx.participants[1].ID, calls[1].participantID)
	require.Empty(t, calls[1].playerIDs)
}

func TestOpenTwiceRejected(t *testing.T) {
	fx := newFixture(t)
	fx.open(t)
	require.Error(t, fx.mgr.Open(context.Background(), fx.leagueID, fx.participants))
}
