package models

import (
	"github.com/google/uuid"
)

// PlayerRole is the on-field role of a cricket player.
type PlayerRole string

const (
	PlayerRoleBatter       PlayerRole = "BATTER"
	PlayerRoleBowler       PlayerRole = "BOWLER"
	PlayerRoleAllRounder   PlayerRole = "ALL_ROUNDER"
	PlayerRoleWicketKeeper PlayerRole = "WICKET_KEEPER"
)

// Player represents a real-world cricket player available for drafting.
type Player struct {
	ID               uuid.UUID  `json:"id"`
	FullName         string     `json:"full_name"`
	Team             string     `json:"team"`
	Role             PlayerRole `json:"role"`
	BasePrice        float64    `json:"base_price"`
	PriorSeasonPrice *float64   `json:"prior_season_price,omitempty"`
}
