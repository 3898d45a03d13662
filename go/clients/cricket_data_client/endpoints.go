package cricket_data_client

const (
	// Base URL
	BaseURL = "https://api.cricapi.com/v1"

	// API Endpoints
	SeriesSquadEndpoint = "/series_squad"
	PlayersEndpoint     = "/players"
	PlayerInfoEndpoint  = "/players_info"

	// Query parameters
	APIKeyParam = "apikey"
	SeriesParam = "id"
	OffsetParam = "offset"
)
