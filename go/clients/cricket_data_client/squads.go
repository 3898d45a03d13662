package cricket_data_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// CricAPI response structures
type CDPlayer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	BattingStyle string `json:"battingStyle"`
	BowlingStyle string `json:"bowlingStyle"`
	Country     string `json:"country"`
}

type CDSquad struct {
	TeamName  string     `json:"teamName"`
	ShortName string     `json:"shortname"`
	Players   []CDPlayer `json:"players"`
}

type CDSquadResponse struct {
	APIKeyUsed string    `json:"apikey"`
	Status     string    `json:"status"`
	Data       []CDSquad `json:"data"`
}

// GetSeriesSquads retrieves every team squad registered for a series.
func (c *CricketDataClient) GetSeriesSquads(ctx context.Context, seriesID string) ([]CDSquad, error) {
	query := url.Values{}
	query.Set(APIKeyParam, c.apiKey)
	query.Set(SeriesParam, seriesID)

	body, err := c.Get(ctx, SeriesSquadEndpoint+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to get series squads: %w", err)
	}

	var response CDSquadResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal squad response: %w, raw response: %s", err, string(body))
	}

	if response.Status != "success" {
		return nil, fmt.Errorf("API returned status: %s", response.Status)
	}

	return response.Data, nil
}

// GetSquadByTeam retrieves the squad for a single team in a series by
// its short name (e.g. "CSK", "MI").
func (c *CricketDataClient) GetSquadByTeam(ctx context.Context, seriesID, shortName string) (*CDSquad, error) {
	squads, err := c.GetSeriesSquads(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to get squads: %w", err)
	}

	for i := range squads {
		if squads[i].ShortName == shortName {
			return &squads[i], nil
		}
	}

	return nil, fmt.Errorf("team with short name '%s' not found in series", shortName)
}
