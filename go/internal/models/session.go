package models

import (
	"github.com/google/uuid"
	"time"
)

// AuctionSession tracks one league's active auction cycle. Created when
// the queue driver starts, destroyed when the queue is exhausted or the
// league admin resets it.
type AuctionSession struct {
	LeagueID    uuid.UUID `json:"league_id"`
	IsActive    bool      `json:"is_active"`
	QueueCursor int       `json:"queue_cursor"`
	StartedAt   time.Time `json:"started_at"`
}

// ReleaseWindowState tracks the pre-auction release window for a league.
type ReleaseWindowState struct {
	LeagueID uuid.UUID `json:"league_id"`
	IsOpen   bool      `json:"is_open"`
	OpenedAt time.Time `json:"opened_at"`

	// SelectedForRelease maps participant id to the set of player ids
	// currently toggled for release.
	SelectedForRelease map[uuid.UUID]map[uuid.UUID]struct{} `json:"-"`

	// Submitted holds participants whose release choices already hit the
	// ledger. Everyone else is auto-resolved to "keep all" on close.
	Submitted map[uuid.UUID]struct{} `json:"-"`
}
