package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// StockClient reads market context from the stock-agent service.
type StockClient struct {
	client *resty.Client
}

func NewStockClient(baseURL string, timeout time.Duration) *StockClient {
	return &StockClient{
		client: newRestClient(baseURL, restOptions{timeout: timeout, retries: 2}),
	}
}

// MarketContext returns the data payload for symbols. An unsuccessful envelope is an error.
func (s *StockClient) MarketContext(ctx context.Context, symbols []string, horizon string) (map[string]any, error) {
	body := map[string]any{
		"symbols":      symbols,
		"time_horizon": horizon,
	}
	var out MarketContextResponse
	if err := postJSON(ctx, s.client, "stock", "/api/v1/rag/market-context", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &SourceError{
			Source: "stock",
			URL:    s.client.BaseURL + "/api/v1/rag/market-context",
			Err:    fmt.Errorf("service reported failure: %s", out.Message),
		}
	}
	return out.Data, nil
}
