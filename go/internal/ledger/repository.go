package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devpatel10/gully/go/internal/models"
	"github.com/devpatel10/gully/go/internal/sqlutil"
)

// Repository is the pgx-backed ledger implementation.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const getNextQueueItemQuery = `
SELECT q.id, q.league_id, q.position, q.status, q.created_at,
       p.id, p.full_name, p.team, p.role, p.base_price, p.prior_season_price
FROM auction_queue q
JOIN players p ON p.id = q.player_id
WHERE q.league_id = $1 AND q.status = 'PENDING'
ORDER BY q.position
LIMIT 1`

func (r *Repository) GetNextQueueItem(ctx context.Context, leagueID uuid.UUID) (*models.QueueItem, error) {
	var item models.QueueItem
	err := r.pool.QueryRow(ctx, getNextQueueItemQuery, leagueID).Scan(
		&item.ID, &item.LeagueID, &item.Position, &item.Status, &item.CreatedAt,
		&item.Player.ID, &item.Player.FullName, &item.Player.Team, &item.Player.Role,
		&item.Player.BasePrice, &item.Player.PriorSeasonPrice,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next queue item: %w", err)
	}
	return &item, nil
}

func (r *Repository) ResolveContestedPlayer(ctx context.Context, playerID, winnerID, queueItemID uuid.UUID, finalPrice float64) error {
	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE auction_queue SET status = 'RESOLVED' WHERE id = $1 AND status = 'PENDING'`,
			queueItemID)
		if err != nil {
			return fmt.Errorf("failed to mark queue item resolved: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Re-finalize of an already committed round: keep it idempotent.
			return nil
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO squad_entries (id, participant_id, player_id, price, status, acquired_at)
			 VALUES ($1, $2, $3, $4, 'OWNED', now())`,
			uuid.New(), winnerID, playerID, finalPrice); err != nil {
			return fmt.Errorf("failed to insert squad entry: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE participants SET budget = budget - $2, roster_size = roster_size + 1 WHERE id = $1`,
			winnerID, finalPrice); err != nil {
			return fmt.Errorf("failed to charge winner budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to resolve contested player: %w", err)
	}
	return nil
}

func (r *Repository) SkipPlayer(ctx context.Context, leagueID, queueItemID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE auction_queue SET status = 'SKIPPED' WHERE id = $1 AND league_id = $2 AND status = 'PENDING'`,
		queueItemID, leagueID); err != nil {
		return fmt.Errorf("failed to skip queue item: %w", err)
	}
	return nil
}

func (r *Repository) ReleasePlayers(ctx context.Context, participantID uuid.UUID, playerIDs []uuid.UUID) (*models.ReleaseResult, error) {
	result := &models.ReleaseResult{ReleasedPlayers: []uuid.UUID{}}

	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		if len(playerIDs) > 0 {
			rows, err := tx.Query(ctx,
				`UPDATE squad_entries SET status = 'RELEASED'
				 WHERE participant_id = $1 AND player_id = ANY($2) AND status = 'UNCONTESTED'
				 RETURNING player_id`,
				participantID, playerIDs)
			if err != nil {
				return fmt.Errorf("failed to release players: %w", err)
			}
			released, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
			if err != nil {
				return fmt.Errorf("failed to collect released players: %w", err)
			}
			result.ReleasedPlayers = released
			result.ReleasedCount = len(released)

			if len(released) > 0 {
				if _, err := tx.Exec(ctx,
					`UPDATE participants SET roster_size = roster_size - $2 WHERE id = $1`,
					participantID, len(released)); err != nil {
					return fmt.Errorf("failed to adjust roster size: %w", err)
				}
			}
		}

		// Whatever the participant kept transitions from uncontested to
		// owned; the ledger call is what drives that status change.
		if _, err := tx.Exec(ctx,
			`UPDATE squad_entries SET status = 'OWNED'
			 WHERE participant_id = $1 AND status = 'UNCONTESTED'`,
			participantID); err != nil {
			return fmt.Errorf("failed to lock kept players: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process release: %w", err)
	}
	return result, nil
}

const getParticipantsQuery = `
SELECT id, league_id, user_id, team_name, messaging_user_id, budget, roster_size, created_at
FROM participants
WHERE league_id = $1
ORDER BY created_at`

func (r *Repository) GetParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx, getParticipantsQuery, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	participants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Participant, error) {
		var p models.Participant
		err := row.Scan(&p.ID, &p.LeagueID, &p.UserID, &p.TeamName, &p.MessagingUserID,
			&p.Budget, &p.RosterSize, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan participants: %w", err)
	}
	return participants, nil
}

const getUncontestedQuery = `
SELECT p.id, p.full_name, p.team, p.role, p.base_price, p.prior_season_price
FROM squad_entries s
JOIN players p ON p.id = s.player_id
WHERE s.participant_id = $1 AND s.status = 'UNCONTESTED'
ORDER BY p.full_name`

func (r *Repository) GetUncontestedPlayers(ctx context.Context, participantID uuid.UUID) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx, getUncontestedQuery, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uncontested players: %w", err)
	}
	players, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Player, error) {
		var p models.Player
		err := row.Scan(&p.ID, &p.FullName, &p.Team, &p.Role, &p.BasePrice, &p.PriorSeasonPrice)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan uncontested players: %w", err)
	}
	return players, nil
}
