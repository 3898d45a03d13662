package models

import (
	"github.com/google/uuid"
	"time"
)

// RoundState is the lifecycle state of a bidding round.
type RoundState string

const (
	RoundStateIdle       RoundState = "IDLE"
	RoundStateOpen       RoundState = "OPEN"
	RoundStateFinalizing RoundState = "FINALIZING"
	RoundStateResolved   RoundState = "RESOLVED"
	RoundStateSkipped    RoundState = "SKIPPED"
)

// Bid is an immutable record of one bid signal. Once appended to a
// round it is never mutated or removed.
type Bid struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	TeamName      string    `json:"team_name"`
	BidNumber     int       `json:"bid_number"`
	PlacedAt      time.Time `json:"placed_at"`
}

// BiddingRound holds the in-memory state of the player currently up
// for bid in a league. At most one round may be active per league.
type BiddingRound struct {
	LeagueID    uuid.UUID               `json:"league_id"`
	QueueItemID uuid.UUID               `json:"queue_item_id"`
	Player      Player                  `json:"player"`
	State       RoundState              `json:"state"`
	Active      bool                    `json:"active"`
	BidCount    int                     `json:"bid_count"`
	Bids        []Bid                   `json:"bids"`
	LastBidder  *Bid                    `json:"last_bidder,omitempty"`
	Skipped     map[uuid.UUID]struct{}  `json:"-"`
	OpenedAt    time.Time               `json:"opened_at"`
	Recovered   bool                    `json:"recovered,omitempty"`
}

// HasSkipped reports whether the participant already skipped this round.
func (r *BiddingRound) HasSkipped(participantID uuid.UUID) bool {
	_, ok := r.Skipped[participantID]
	return ok
}
