package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/devpatel10/gully/go/internal/models"
)

// LedgerRepository defines what the app layer needs from the repository.
type LedgerRepository interface {
	GetNextQueueItem(ctx context.Context, leagueID uuid.UUID) (*models.QueueItem, error)
	ResolveContestedPlayer(ctx context.Context, playerID, winnerID, queueItemID uuid.UUID, finalPrice float64) error
	SkipPlayer(ctx context.Context, leagueID, queueItemID uuid.UUID) error
	ReleasePlayers(ctx context.Context, participantID uuid.UUID, playerIDs []uuid.UUID) (*models.ReleaseResult, error)
	GetParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error)
	GetUncontestedPlayers(ctx context.Context, participantID uuid.UUID) ([]models.Player, error)
}

// App handles ledger business logic. It implements Store for the
// auction engine.
type App struct {
	repo LedgerRepository
}

func NewApp(repo LedgerRepository) *App {
	return &App{
		repo: repo,
	}
}

var _ Store = (*App)(nil)

func (a *App) GetNextQueueItem(ctx context.Context, leagueID uuid.UUID) (*models.QueueItem, error) {
	if leagueID == uuid.Nil {
		return nil, fmt.Errorf("league_id is required")
	}
	return a.repo.GetNextQueueItem(ctx, leagueID)
}

func (a *App) ResolveContestedPlayer(ctx context.Context, playerID, winnerID, queueItemID uuid.UUID, finalPrice float64) error {
	if finalPrice < 0 {
		return fmt.Errorf("final price cannot be negative")
	}
	if err := a.repo.ResolveContestedPlayer(ctx, playerID, winnerID, queueItemID, finalPrice); err != nil {
		return err
	}

	log.Info().
		Str("player_id", playerID.String()).
		Str("winner_id", winnerID.String()).
		Float64("final_price", finalPrice).
		Msg("contested player resolved")

	return nil
}

func (a *App) SkipPlayer(ctx context.Context, leagueID, queueItemID uuid.UUID) error {
	if err := a.repo.SkipPlayer(ctx, leagueID, queueItemID); err != nil {
		return err
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("queue_item_id", queueItemID.String()).
		Msg("queue item skipped")

	return nil
}

func (a *App) ReleasePlayers(ctx context.Context, participantID uuid.UUID, playerIDs []uuid.UUID) (*models.ReleaseResult, error) {
	if participantID == uuid.Nil {
		return nil, fmt.Errorf("participant_id is required")
	}

	result, err := a.repo.ReleasePlayers(ctx, participantID, playerIDs)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("participant_id", participantID.String()).
		Int("requested", len(playerIDs)).
		Int("released", result.ReleasedCount).
		Msg("release processed")

	return result, nil
}

func (a *App) GetParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error) {
	if leagueID == uuid.Nil {
		return nil, fmt.Errorf("league_id is required")
	}
	return a.repo.GetParticipants(ctx, leagueID)
}

func (a *App) GetUncontestedPlayers(ctx context.Context, participantID uuid.UUID) ([]models.Player, error) {
	if participantID == uuid.Nil {
		return nil, fmt.Errorf("participant_id is required")
	}
	return a.repo.GetUncontestedPlayers(ctx, participantID)
}
