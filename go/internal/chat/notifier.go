package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/devpatel10/gully/go/internal/models"
)

// Notifier pushes auction messages into league chat. Announce goes to
// every connection in the league; Whisper targets a single participant's
// chat identity. Both are fire-and-forget: delivery failure never blocks
// the auction.
type Notifier struct {
	cm *ConnectionManager
}

func NewNotifier(cm *ConnectionManager) *Notifier {
	return &Notifier{cm: cm}
}

func (n *Notifier) Announce(ctx context.Context, leagueID uuid.UUID, text string) {
	event, err := messageEvent(EventTypeAnnouncement, leagueID, text)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to build announcement")
		return
	}
	n.cm.BroadcastToLeague(leagueID, event)
}

func (n *Notifier) Whisper(ctx context.Context, participant models.Participant, text string) {
	if participant.MessagingUserID == nil {
		// No chat identity linked; the participant still sees group
		// announcements.
		log.Debug().
			Str("participant_id", participant.ID.String()).
			Msg("participant has no messaging identity, skipping whisper")
		return
	}

	event, err := messageEvent(EventTypeWhisper, participant.LeagueID, text)
	if err != nil {
		log.Error().Err(err).Str("participant_id", participant.ID.String()).Msg("failed to build whisper")
		return
	}
	n.cm.BroadcastToUser(participant.LeagueID, *participant.MessagingUserID, event)
}

func messageEvent(eventType EventType, leagueID uuid.UUID, text string) (*ChatEvent, error) {
	data, err := json.Marshal(MessagePayload{Text: text, SentAt: time.Now()})
	if err != nil {
		return nil, err
	}
	return &ChatEvent{
		ID:        uuid.New().String(),
		LeagueID:  leagueID.String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}
