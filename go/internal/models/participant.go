package models

import (
	"github.com/google/uuid"
	"time"
)

// Participant is a league member who owns a squad and a budget.
type Participant struct {
	ID              uuid.UUID `json:"id"`
	LeagueID        uuid.UUID `json:"league_id"`
	UserID          uuid.UUID `json:"user_id"`
	TeamName        string    `json:"team_name"`
	MessagingUserID *string   `json:"messaging_user_id,omitempty"` // nil when no chat identity on file
	Budget          float64   `json:"budget"`
	RosterSize      int       `json:"roster_size"`
	CreatedAt       time.Time `json:"created_at"`
}

// ParticipantSnapshot is a read-through cache of roster/budget/team-name
// data used for private messaging. The ledger stays authoritative; the
// snapshot is refreshed once per auction start.
type ParticipantSnapshot struct {
	Participant Participant `json:"participant"`
	OwnedBy     []uuid.UUID `json:"owned_by"` // uncontested player ids owned at snapshot time
	FetchedAt   time.Time   `json:"fetched_at"`
}

// Owns reports whether the player was among the participant's
// uncontested holdings when the snapshot was taken.
func (s ParticipantSnapshot) Owns(playerID uuid.UUID) bool {
	for _, id := range s.OwnedBy {
		if id == playerID {
			return true
		}
	}
	return false
}
