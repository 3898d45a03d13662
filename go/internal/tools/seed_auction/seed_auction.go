package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devpatel10/gully/go/clients/cricket_data_client"
	"github.com/devpatel10/gully/go/internal/dbconfig"
	"github.com/devpatel10/gully/go/internal/models"
)

// Player mirrors the players.json layout.
type Player struct {
	ID               uuid.UUID `json:"id"`
	FullName         string    `json:"full_name"`
	Team             string    `json:"team"`
	Role             string    `json:"role"`
	BasePrice        float64   `json:"base_price"`
	PriorSeasonPrice *float64  `json:"prior_season_price"`
}

func main() {
	leagueIDStr := flag.String("league", "", "league id to build the auction queue for (optional)")
	playersPath := flag.String("players", "go/internal/assets/players.json", "path to players.json")
	seriesID := flag.String("series", "", "cricket data API series id to pull squads from instead of players.json")
	apiKey := flag.String("api-key", os.Getenv("CRICKET_API_KEY"), "cricket data API key")
	flag.Parse()

	ctx := context.Background()

	// 1) Load players, from the cricket data API or from players.json
	var players []Player
	var err error
	if *seriesID != "" {
		players, err = fetchPlayersFromAPI(ctx, *seriesID, *apiKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fetch players from API: %v\n", err)
			os.Exit(1)
		}
	} else {
		pData, err := os.ReadFile(*playersPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read players.json: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(pData, &players); err != nil {
			fmt.Fprintf(os.Stderr, "unmarshal players: %v\n", err)
			os.Exit(1)
		}
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Seed players
	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (
              id, full_name, team, role, base_price, prior_season_price
            ) VALUES ($1,$2,$3,$4,$5,$6)
            ON CONFLICT (id) DO NOTHING
        `, p.ID, p.FullName, p.Team, p.Role, p.BasePrice, p.PriorSeasonPrice)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)

	if *leagueIDStr == "" {
		return
	}
	leagueID, err := uuid.Parse(*leagueIDStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid league id: %v\n", err)
		os.Exit(1)
	}

	// 4) Build the contested-player queue for the league, ordered by
	// prior season price so marquee players go on the block first.
	total, inserted, skipped, errs = len(players), 0, 0, 0
	for i, p := range players {
		tag, err := pool.Exec(ctx, `
            INSERT INTO auction_queue (id, league_id, player_id, position, status, created_at)
            SELECT $1, $2, $3,
                   COALESCE((SELECT MAX(position) FROM auction_queue WHERE league_id = $2), 0) + $4,
                   'PENDING', now()
            WHERE NOT EXISTS (
              SELECT 1 FROM auction_queue WHERE league_id = $2 AND player_id = $3
            )
        `, uuid.New(), leagueID, p.ID, i+1)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Queue seed: league=%s total=%d inserted=%d skipped=%d errors=%d\n",
		leagueID, total, inserted, skipped, errs,
	)
}

// defaultBasePrice is used for API-sourced players, which carry no
// pricing. Crores, matching the players.json convention.
const defaultBasePrice = 2.0

func fetchPlayersFromAPI(ctx context.Context, seriesID, apiKey string) ([]Player, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cricket data API key required (set CRICKET_API_KEY or pass -api-key)")
	}

	client := cricket_data_client.NewCricketDataClient(apiKey)
	squads, err := client.GetSeriesSquads(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	var players []Player
	for _, squad := range squads {
		for _, p := range squad.Players {
			players = append(players, Player{
				// Deterministic id so re-running the seed is idempotent.
				ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("cricapi:"+p.ID)),
				FullName:  p.Name,
				Team:      squad.TeamName,
				Role:      mapRole(p.Role),
				BasePrice: defaultBasePrice,
			})
		}
	}
	return players, nil
}

func mapRole(apiRole string) string {
	switch {
	case strings.Contains(apiRole, "WK"), strings.Contains(apiRole, "Wicket"):
		return string(models.PlayerRoleWicketKeeper)
	case strings.Contains(apiRole, "Allrounder"), strings.Contains(apiRole, "All-Rounder"):
		return string(models.PlayerRoleAllRounder)
	case strings.Contains(apiRole, "Bowler"):
		return string(models.PlayerRoleBowler)
	default:
		return string(models.PlayerRoleBatter)
	}
}
