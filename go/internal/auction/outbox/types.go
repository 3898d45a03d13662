package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types written to the outbox and used as subject suffixes on the
// event stream.
const (
	EventAuctionStarted   = "AuctionStarted"
	EventWindowOpened     = "WindowOpened"
	EventWindowClosed     = "WindowClosed"
	EventRoundStarted     = "RoundStarted"
	EventBidPlaced        = "BidPlaced"
	EventRoundResolved    = "RoundResolved"
	EventRoundSkipped     = "RoundSkipped"
	EventAuctionCompleted = "AuctionCompleted"
)

// OutboxEvent represents an outbox event for the application layer
type OutboxEvent struct {
	ID        uuid.UUID  `json:"id"`
	LeagueID  uuid.UUID  `json:"league_id"`
	EventType string     `json:"event_type"`
	Payload   []byte     `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
