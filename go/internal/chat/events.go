package chat

import (
	"encoding/json"
	"time"

	"github.com/devpatel10/gully/go/internal/auction/events"
)

// ChatEvent represents the base structure for all events pushed to
// league chat clients
type ChatEvent struct {
	ID        string          `json:"id"`        // Event UUID
	LeagueID  string          `json:"league_id"` // League UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of chat event
type EventType string

const (
	EventTypeAuctionStarted   EventType = "AuctionStarted"
	EventTypeWindowOpened     EventType = "WindowOpened"
	EventTypeWindowClosed     EventType = "WindowClosed"
	EventTypeRoundStarted     EventType = "RoundStarted"
	EventTypeBidPlaced        EventType = "BidPlaced"
	EventTypeRoundResolved    EventType = "RoundResolved"
	EventTypeRoundSkipped     EventType = "RoundSkipped"
	EventTypeAuctionCompleted EventType = "AuctionCompleted"
	EventTypeAnnouncement     EventType = "Announcement"
	EventTypeWhisper          EventType = "Whisper"
)

// MessagePayload is the payload for Announcement and Whisper events.
type MessagePayload struct {
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *ChatEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeAuctionStarted:
		var payload events.AuctionStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeWindowOpened:
		var payload events.WindowOpenedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeWindowClosed:
		var payload events.WindowClosedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundStarted:
		var payload events.RoundStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeBidPlaced:
		var payload events.BidPlacedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundResolved:
		var payload events.RoundResolvedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundSkipped:
		var payload events.RoundSkippedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAuctionCompleted:
		var payload events.AuctionCompletedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAnnouncement, EventTypeWhisper:
		var payload MessagePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
