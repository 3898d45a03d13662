package round

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/devpatel10/gully/go/internal/auction/timer"
	"github.com/devpatel10/gully/go/internal/models"
)

type fakeNotifier struct {
	mu            sync.Mutex
	announcements []string
	whispers      []string
}

func (f *fakeNotifier) Announce(ctx context.Context, leagueID uuid.UUID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announcements = append(f.announcements, text)
}

func (f *fakeNotifier) Whisper(ctx context.Context, participant models.Participant, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whispers = append(f.whispers, text)
}

func (f *fakeNotifier) lastAnnouncement() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.announcements) == 0 {
		return ""
	}
	return f.announcements[len(f.announcements)-1]
}

type resolvedCall struct {
	winner     models.Bid
	finalPrice float64
	bidCount   int
}

type skippedCall struct {
	unanimous bool
}

type fakeReporter struct {
	mu          sync.Mutex
	bids        int
	resolved    []resolvedCall
	skipped     []skippedCall
	failResolve error
	failSkip    error
	closed      chan struct{}
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{closed: make(chan struct{}, 8)}
}

func (f *fakeReporter) ReportBid(ctx context.Context, rnd *models.BiddingRound, bid models.Bid, currentPrice float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bids++
	return nil
}

func (f *fakeReporter) ReportResolved(ctx context.Context, rnd *models.BiddingRound, winner models.Bid, finalPrice float64) error {
	f.mu.Lock()
	f.resolved = append(f.resolved, resolvedCall{winner: winner, finalPrice: finalPrice, bidCount: rnd.BidCount})
	f.mu.Unlock()
	f.closed <- struct{}{}
	return f.failResolve
}

func (f *fakeReporter) ReportSkipped(ctx context.Context, rnd *models.BiddingRound, unanimous bool) error {
	f.mu.Lock()
	f.skipped = append(f.skipped, skippedCall{unanimous: unanimous})
	f.mu.Unlock()
	f.closed <- struct{}{}
	return f.failSkip
}

func (f *fakeReporter) resolvedCalls() []resolvedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]resolvedCall(nil), f.resolved...)
}

func (f *fakeReporter) skippedCalls() []skippedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]skippedCall(nil), f.skipped...)
}

func (f *fakeReporter) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-f.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("round did not close")
	}
}

type fixture struct {
	clock        *clockwork.FakeClock
	mgr          *Manager
	notifier     *fakeNotifier
	reporter     *fakeReporter
	item         models.QueueItem
	participants []models.Participant
}

func newFixture(t *testing.T, participantCount int) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	notifier := &fakeNotifier{}
	reporter := newFakeReporter()
	mgr := NewManager(DefaultConfig(), clock, timer.NewScheduler(clock), notifier, reporter)

	leagueID := uuid.New()
	participants := make([]models.Participant, participantCount)
	for i := range participants {
		participants[i] = models.Participant{
			ID:       uuid.New(),
			LeagueID: leagueID,
			TeamName: "Team " + string(rune('A'+i)),
			Budget:   100,
		}
	}

	return &fixture{
		clock:    clock,
		mgr:      mgr,
		notifier: notifier,
		reporter: reporter,
		item: models.QueueItem{
			ID:       uuid.New(),
			LeagueID: leagueID,
			Player: models.Player{
				ID:        uuid.New(),
				FullName:  "V Sharma",
				Team:      "Mumbai",
				Role:      models.PlayerRoleBatter,
				BasePrice: 2.0,
			},
			Status: models.QueueItemStatusPending,
		},
		participants: participants,
	}
}

func (fx *fixture) leagueID() uuid.UUID { return fx.item.LeagueID }

func TestOpenRejectsSecondRound(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))

	other := fx.item
	other.ID = uuid.New()
	err := fx.mgr.Open(ctx, other, fx.participants)
	require.ErrorIs(t, err, ErrRoundInProgress)
}

func TestSingleBidResolvesAtBasePrice(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))
	fx.reporter.waitClosed(t)

	resolved := fx.reporter.resolvedCalls()
	require.Len(t, resolved, 1)
	require.Equal(t, fx.participants[0].ID, resolved[0].winner.ParticipantID)
	require.Equal(t, 2.0, resolved[0].finalPrice)
	require.Nil(t, fx.mgr.Round(fx.leagueID()))
}

func TestEachLaterBidAddsOneIncrement(t *testing.T) {
	fx := newFixture(t, 3)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[1].ID))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[2].ID))
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))
	fx.reporter.waitClosed(t)

	resolved := fx.reporter.resolvedCalls()
	require.Len(t, resolved, 1)
	require.Equal(t, fx.participants[2].ID, resolved[0].winner.ParticipantID)
	require.Equal(t, 3.0, resolved[0].finalPrice) // 2.0 + 2*0.5
	require.Equal(t, 3, resolved[0].bidCount)
}

func TestRebidByLeaderStillRaisesPrice(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))
	fx.reporter.waitClosed(t)

	resolved := fx.reporter.resolvedCalls()
	require.Len(t, resolved, 1)
	require.Equal(t, fx.participants[0].ID, resolved[0].winner.ParticipantID)
	require.Equal(t, 2.5, resolved[0].finalPrice)
}

func TestBidAfterSkipIsIgnored(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	require.NoError(t, fx.mgr.Skip(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[1].ID))
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))
	fx.reporter.waitClosed(t)

	resolved := fx.reporter.resolvedCalls()
	require.Len(t, resolved, 1)
	require.Equal(t, fx.participants[1].ID, resolved[0].winner.ParticipantID)
	require.Equal(t, 2.0, resolved[0].finalPrice)
}

func TestNonParticipantSignalsIgnored(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), uuid.New()))
	require.NoError(t, fx.mgr.Skip(ctx, fx.leagueID(), uuid.New()))

	rnd := fx.mgr.Round(fx.leagueID())
	require.NotNil(t, rnd)
	require.Equal(t, 0, rnd.BidCount)
	require.Empty(t, rnd.Skipped)
}

func TestUnanimousSkipFinalizesImmediately(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	var closedLeague uuid.UUID
	done := make(chan struct{})
	fx.mgr.SetOnClosed(func(leagueID uuid.UUID) {
		closedLeague = leagueID
		close(done)
	})

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	require.NoError(t, fx.mgr.Skip(ctx, fx.leagueID(), fx.participants[0].ID))
	// Duplicate skip is idempotent and must not finalize alone.
	require.NoError(t, fx.mgr.Skip(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NotNil(t, fx.mgr.Round(fx.leagueID()))

	require.NoError(t, fx.mgr.Skip(ctx, fx.leagueID(), fx.participants[1].ID))
	fx.reporter.waitClosed(t)
	<-done

	skipped := fx.reporter.skippedCalls()
	require.Len(t, skipped, 1)
	require.True(t, skipped[0].unanimous)
	require.Equal(t, fx.leagueID(), closedLeague)
	require.Nil(t, fx.mgr.Round(fx.leagueID()))
}

func TestZeroBidCountdownSkips(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	fx.clock.BlockUntil(1)
	fx.clock.Advance(15 * time.Second)
	fx.reporter.waitClosed(t)

	skipped := fx.reporter.skippedCalls()
	require.Len(t, skipped, 1)
	require.False(t, skipped[0].unanimous)
	require.Nil(t, fx.mgr.Round(fx.leagueID()))
}

func TestBidRestartsCountdown(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	fx.clock.BlockUntil(1)

	fx.clock.Advance(10 * time.Second)
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	fx.clock.BlockUntil(1)

	// 10s into the fresh countdown nothing closes.
	fx.clock.Advance(10 * time.Second)
	select {
	case <-fx.reporter.closed:
		t.Fatal("round closed before restarted countdown expired")
	case <-time.After(50 * time.Millisecond):
	}

	fx.clock.Advance(5 * time.Second)
	fx.reporter.waitClosed(t)

	resolved := fx.reporter.resolvedCalls()
	require.Len(t, resolved, 1)
	require.Equal(t, fx.participants[0].ID, resolved[0].winner.ParticipantID)
}

func TestFinalizeTwiceReportsOnce(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))
	fx.reporter.waitClosed(t)
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))

	require.Len(t, fx.reporter.resolvedCalls(), 1)
}

func TestReporterFailureStillClosesRound(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()
	fx.reporter.failResolve = errors.New("ledger down")

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))
	fx.reporter.waitClosed(t)

	// Local state is terminal despite the downstream failure, and the
	// league hears about it.
	require.Nil(t, fx.mgr.Round(fx.leagueID()))
	require.True(t, strings.Contains(fx.notifier.lastAnnouncement(), "technical issue"))
}

func TestSignalsWithoutRoundReturnErrNoActiveRound(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.ErrorIs(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID), ErrNoActiveRound)
	require.ErrorIs(t, fx.mgr.Skip(ctx, fx.leagueID(), fx.participants[0].ID), ErrNoActiveRound)
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))
}

func TestRecoverReconstructsRound(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Recover(ctx, fx.item, fx.participants))

	rnd := fx.mgr.Round(fx.leagueID())
	require.NotNil(t, rnd)
	require.True(t, rnd.Recovered)
	require.Equal(t, models.RoundStateOpen, rnd.State)

	require.NoError(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID))
	require.NoError(t, fx.mgr.Finalize(ctx, fx.leagueID()))
	fx.reporter.waitClosed(t)
	require.Len(t, fx.reporter.resolvedCalls(), 1)
}

func TestClearDropsRoundState(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, fx.mgr.Open(ctx, fx.item, fx.participants))
	fx.mgr.Clear(fx.leagueID())

	require.Nil(t, fx.mgr.Round(fx.leagueID()))
	require.ErrorIs(t, fx.mgr.PlaceBid(ctx, fx.leagueID(), fx.participants[0].ID), ErrNoActiveRound)
}
