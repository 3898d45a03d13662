package events

import (
	"time"
)

// Event payload types shared between the auction engine, outbox, and
// chat gateway packages.

// AuctionStartedPayload is the payload for an AuctionStarted event
type AuctionStartedPayload struct {
	LeagueID     string    `json:"league_id"`
	Participants int       `json:"participants"`
	StartedAt    time.Time `json:"started_at"`
}

// WindowOpenedPayload is the payload for a WindowOpened event
type WindowOpenedPayload struct {
	LeagueID string    `json:"league_id"`
	OpenedAt time.Time `json:"opened_at"`
	ClosesAt time.Time `json:"closes_at"`
}

// WindowClosedPayload is the payload for a WindowClosed event
type WindowClosedPayload struct {
	LeagueID     string    `json:"league_id"`
	ClosedAt     time.Time `json:"closed_at"`
	Submitted    int       `json:"submitted"`
	AutoResolved int       `json:"auto_resolved"`
}

// RoundStartedPayload is the payload for a RoundStarted event
type RoundStartedPayload struct {
	LeagueID    string    `json:"league_id"`
	QueueItemID string    `json:"queue_item_id"`
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	BasePrice   float64   `json:"base_price"`
	OpenedAt    time.Time `json:"opened_at"`
	TimeoutAt   time.Time `json:"timeout_at"`
}

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	LeagueID      string    `json:"league_id"`
	QueueItemID   string    `json:"queue_item_id"`
	ParticipantID string    `json:"participant_id"`
	TeamName      string    `json:"team_name"`
	BidNumber     int       `json:"bid_number"`
	CurrentPrice  float64   `json:"current_price"`
	PlacedAt      time.Time `json:"placed_at"`
}

// RoundResolvedPayload is the payload for a RoundResolved event
type RoundResolvedPayload struct {
	LeagueID     string    `json:"league_id"`
	QueueItemID  string    `json:"queue_item_id"`
	PlayerID     string    `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	WinnerID     string    `json:"winner_id"`
	WinnerTeam   string    `json:"winner_team"`
	FinalPrice   float64   `json:"final_price"`
	BidCount     int       `json:"bid_count"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// RoundSkippedPayload is the payload for a RoundSkipped event
type RoundSkippedPayload struct {
	LeagueID    string    `json:"league_id"`
	QueueItemID string    `json:"queue_item_id"`
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	Unanimous   bool      `json:"unanimous"` // true when every participant skipped, false on zero-bid timeout
	SkippedAt   time.Time `json:"skipped_at"`
}

// AuctionCompletedPayload is the payload for an AuctionCompleted event
type AuctionCompletedPayload struct {
	LeagueID    string    `json:"league_id"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
	Resolved    int       `json:"resolved"`
	SkippedOut  int       `json:"skipped"`
}
