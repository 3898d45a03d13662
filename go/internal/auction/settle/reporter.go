package settle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/devpatel10/gully/go/internal/auction/events"
	"github.com/devpatel10/gully/go/internal/auction/round"
	"github.com/devpatel10/gully/go/internal/ledger"
	"github.com/devpatel10/gully/go/internal/models"
)

// OutboxApp defines what settlement needs from the outbox.
type OutboxApp interface {
	InsertBidPlaced(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertRoundResolved(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertRoundSkipped(ctx context.Context, leagueID uuid.UUID, payload []byte) error
}

// Tally receives per-outcome counts for the session summary.
type Tally interface {
	NoteResolved(leagueID uuid.UUID)
	NoteSkipped(leagueID uuid.UUID)
}

// Reporter settles round outcomes: it writes them to the ledger, emits
// the corresponding events through the outbox, and announces the result
// in chat. It is the round manager's only path to persistence.
type Reporter struct {
	store    ledger.Store
	outbox   OutboxApp
	notifier round.Notifier
	tally    Tally
	clock    clockwork.Clock
}

var _ round.Reporter = (*Reporter)(nil)

func NewReporter(store ledger.Store, outbox OutboxApp, notifier round.Notifier, clock clockwork.Clock) *Reporter {
	return &Reporter{
		store:    store,
		outbox:   outbox,
		notifier: notifier,
		clock:    clock,
	}
}

// SetTally registers the session tally. Must be called before the first
// round closes.
func (r *Reporter) SetTally(t Tally) {
	r.tally = t
}

// ReportBid emits a BidPlaced event. Bids carry no ledger write; only
// the closing outcome touches budgets.
func (r *Reporter) ReportBid(ctx context.Context, rnd *models.BiddingRound, bid models.Bid, currentPrice float64) error {
	return r.emit(ctx, rnd.LeagueID, r.outbox.InsertBidPlaced, events.BidPlacedPayload{
		LeagueID:      rnd.LeagueID.String(),
		QueueItemID:   rnd.QueueItemID.String(),
		ParticipantID: bid.ParticipantID.String(),
		TeamName:      bid.TeamName,
		BidNumber:     bid.BidNumber,
		CurrentPrice:  currentPrice,
		PlacedAt:      bid.PlacedAt,
	})
}

// ReportResolved commits the sale to the ledger, then emits and
// announces it. The ledger write is idempotent, so a re-run finalize
// after a partial failure never double-charges the winner.
func (r *Reporter) ReportResolved(ctx context.Context, rnd *models.BiddingRound, winner models.Bid, finalPrice float64) error {
	if err := r.store.ResolveContestedPlayer(ctx, rnd.Player.ID, winner.ParticipantID, rnd.QueueItemID, finalPrice); err != nil {
		return fmt.Errorf("failed to resolve contested player: %w", err)
	}

	if r.tally != nil {
		r.tally.NoteResolved(rnd.LeagueID)
	}

	r.notifier.Announce(ctx, rnd.LeagueID, fmt.Sprintf(
		"Sold! %s goes to %s for %.2f.", rnd.Player.FullName, winner.TeamName, finalPrice))

	log.Info().
		Str("league_id", rnd.LeagueID.String()).
		Str("player", rnd.Player.FullName).
		Str("winner_team", winner.TeamName).
		Float64("final_price", finalPrice).
		Int("bid_count", rnd.BidCount).
		Msg("round resolved")

	return r.emit(ctx, rnd.LeagueID, r.outbox.InsertRoundResolved, events.RoundResolvedPayload{
		LeagueID:    rnd.LeagueID.String(),
		QueueItemID: rnd.QueueItemID.String(),
		PlayerID:    rnd.Player.ID.String(),
		PlayerName:  rnd.Player.FullName,
		WinnerID:    winner.ParticipantID.String(),
		WinnerTeam:  winner.TeamName,
		FinalPrice:  finalPrice,
		BidCount:    rnd.BidCount,
		ResolvedAt:  r.clock.Now(),
	})
}

// ReportSkipped marks the queue item skipped in the ledger, then emits
// and announces it.
func (r *Reporter) ReportSkipped(ctx context.Context, rnd *models.BiddingRound, unanimous bool) error {
	if err := r.store.SkipPlayer(ctx, rnd.LeagueID, rnd.QueueItemID); err != nil {
		return fmt.Errorf("failed to skip player: %w", err)
	}

	if r.tally != nil {
		r.tally.NoteSkipped(rnd.LeagueID)
	}

	reason := "no bids before the countdown ran out"
	if unanimous {
		reason = "everyone skipped"
	}
	r.notifier.Announce(ctx, rnd.LeagueID, fmt.Sprintf(
		"%s goes unsold (%s).", rnd.Player.FullName, reason))

	log.Info().
		Str("league_id", rnd.LeagueID.String()).
		Str("player", rnd.Player.FullName).
		Bool("unanimous", unanimous).
		Msg("round skipped")

	return r.emit(ctx, rnd.LeagueID, r.outbox.InsertRoundSkipped, events.RoundSkippedPayload{
		LeagueID:    rnd.LeagueID.String(),
		QueueItemID: rnd.QueueItemID.String(),
		PlayerID:    rnd.Player.ID.String(),
		PlayerName:  rnd.Player.FullName,
		Unanimous:   unanimous,
		SkippedAt:   r.clock.Now(),
	})
}

func (r *Reporter) emit(ctx context.Context, leagueID uuid.UUID, insert func(context.Context, uuid.UUID, []byte) error, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if err := insert(ctx, leagueID, data); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
