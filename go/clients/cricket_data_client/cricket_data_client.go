package cricket_data_client

import (
	"github.com/devpatel10/gully/go/clients"
)

type CricketDataClient struct {
	*clients.BaseClient

	apiKey string
}

func NewCricketDataClient(apiKey string) *CricketDataClient {
	return &CricketDataClient{
		BaseClient: clients.NewBaseClient(BaseURL),
		apiKey:     apiKey,
	}
}
