package models

import (
	"github.com/google/uuid"
	"time"
)

type QueueItemStatus string

const (
	QueueItemStatusPending  QueueItemStatus = "PENDING"
	QueueItemStatusResolved QueueItemStatus = "RESOLVED"
	QueueItemStatusSkipped  QueueItemStatus = "SKIPPED"
)

// QueueItem is one contested player waiting in a league's auction queue.
type QueueItem struct {
	ID        uuid.UUID       `json:"id"`
	LeagueID  uuid.UUID       `json:"league_id"`
	Player    Player          `json:"player"`
	Position  int             `json:"position"`
	Status    QueueItemStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// ReleaseResult is the ledger's response to a release call.
type ReleaseResult struct {
	ReleasedCount   int         `json:"released_count"`
	ReleasedPlayers []uuid.UUID `json:"released_players"`
}
