package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/devpatel10/gully/go/internal/models"
)

// ErrQueueEmpty is returned when a league's contested-player queue has
// no pending items left.
var ErrQueueEmpty = errors.New("auction queue empty")

// Store is the persistence contract the auction engine consumes. The
// ledger is the source of truth for "who owns what"; the in-memory
// engine is the source of truth for "whose turn it is to bid".
type Store interface {
	// GetNextQueueItem returns the next pending contested player for the
	// league, or ErrQueueEmpty.
	GetNextQueueItem(ctx context.Context, leagueID uuid.UUID) (*models.QueueItem, error)

	// ResolveContestedPlayer commits a round outcome: assigns the player
	// to the winner at finalPrice, charges the budget, and marks the
	// queue item resolved.
	ResolveContestedPlayer(ctx context.Context, playerID, winnerID, queueItemID uuid.UUID, finalPrice float64) error

	// SkipPlayer marks a queue item skipped with no owner.
	SkipPlayer(ctx context.Context, leagueID, queueItemID uuid.UUID) error

	// ReleasePlayers returns the given uncontested players to the pool.
	// An empty playerIDs slice is an explicit "keep all": it locks the
	// participant's remaining uncontested picks as owned.
	ReleasePlayers(ctx context.Context, participantID uuid.UUID, playerIDs []uuid.UUID) (*models.ReleaseResult, error)

	// GetParticipants lists the league's participants with team name,
	// budget, roster size, and messaging identity.
	GetParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error)

	// GetUncontestedPlayers lists the uncontested players currently held
	// by the participant, used to re-validate release selections.
	GetUncontestedPlayers(ctx context.Context, participantID uuid.UUID) ([]models.Player, error)
}
