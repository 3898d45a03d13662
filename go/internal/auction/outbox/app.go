package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	InsertOutboxAuctionStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertOutboxWindowOpened(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertOutboxWindowClosed(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertOutboxRoundStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertOutboxBidPlaced(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertOutboxRoundResolved(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertOutboxRoundSkipped(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	InsertOutboxAuctionCompleted(ctx context.Context, leagueID uuid.UUID, payload []byte) error
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, ids []uuid.UUID) error
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
}

// App handles outbox business logic
type App struct {
	repo OutboxRepository
}

// NewApp creates a new outbox App
func NewApp(repo OutboxRepository) *App {
	return &App{
		repo: repo,
	}
}

func (a *App) insertEvent(ctx context.Context, eventType string, leagueID uuid.UUID, payload []byte,
	insert func(context.Context, uuid.UUID, []byte) error) error {
	if len(payload) == 0 {
		return fmt.Errorf("invalid %s payload: event payload cannot be empty", eventType)
	}

	if err := insert(ctx, leagueID, payload); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")

	return nil
}

// InsertAuctionStarted inserts an AuctionStarted event into the outbox
func (a *App) InsertAuctionStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, EventAuctionStarted, leagueID, payload, a.repo.InsertOutboxAuctionStarted)
}

// InsertWindowOpened inserts a WindowOpened event into the outbox
func (a *App) InsertWindowOpened(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, EventWindowOpened, leagueID, payload, a.repo.InsertOutboxWindowOpened)
}

// InsertWindowClosed inserts a WindowClosed event into the outbox
func (a *App) InsertWindowClosed(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, EventWindowClosed, leagueID, payload, a.repo.InsertOutboxWindowClosed)
}

// InsertRoundStarted inserts a RoundStarted event into the outbox
func (a *App) InsertRoundStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, EventRoundStarted, leagueID, payload, a.repo.InsertOutboxRoundStarted)
}

// InsertBidPlaced inserts a BidPlaced event into the outbox
func (a *App) InsertBidPlaced(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, EventBidPlaced, leagueID, payload, a.repo.InsertOutboxBidPlaced)
}

// InsertRoundResolved inserts a RoundResolved event into the outbox
func (a *App) InsertRoundResolved(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, EventRoundResolved, leagueID, payload, a.repo.InsertOutboxRoundResolved)
}

// InsertRoundSkipped inserts a RoundSkipped event into the outbox
func (a *App) InsertRoundSkipped(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, EventRoundSkipped, leagueID, payload, a.repo.InsertOutboxRoundSkipped)
}

// InsertAuctionCompleted inserts an AuctionCompleted event into the outbox
func (a *App) InsertAuctionCompleted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return a.insertEvent(ctx, EventAuctionCompleted, leagueID, payload, a.repo.InsertOutboxAuctionCompleted)
}

// FetchUnsentEvents fetches unsent outbox events
func (a *App) FetchUnsentEvents(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	events, err := a.repo.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent events: %w", err)
	}

	if len(events) > 0 {
		log.Debug().
			Int("count", len(events)).
			Msg("fetched unsent outbox events")
	}

	return events, nil
}

// MarkEventSent marks an outbox event as sent
func (a *App) MarkEventSent(ctx context.Context, eventID uuid.UUID) error {
	if err := a.repo.MarkOutboxSent(ctx, []uuid.UUID{eventID}); err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}

	log.Debug().
		Str("event_id", eventID.String()).
		Msg("marked outbox event as sent")

	return nil
}

// GetEventByID fetches a specific outbox event by ID
func (a *App) GetEventByID(ctx context.Context, eventID uuid.UUID) (*OutboxEvent, error) {
	event, err := a.repo.FetchOutboxByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event by ID: %w", err)
	}

	return event, nil
}
