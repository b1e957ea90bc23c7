package dataflows

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// SentimentClient queries the public-opinion service.
type SentimentClient struct {
	client *resty.Client
	cache  *Cache
}

func NewSentimentClient(baseURL, apiKey string, timeout time.Duration, cache *Cache) *SentimentClient {
	return &SentimentClient{
		client: newRestClient(baseURL, restOptions{timeout: timeout, retries: 2, apiKey: apiKey}),
		cache:  cache,
	}
}

func (s *SentimentClient) Query(ctx context.Context, q SentimentQuery) (*SentimentResponse, error) {
	if q.TimeRange == "" {
		q.TimeRange = "24h"
	}
	if len(q.DataSources) == 0 {
		q.DataSources = []string{"news", "social", "research"}
	}
	if q.MaxResults <= 0 {
		q.MaxResults = 50
	}

	var out SentimentResponse
	if s.cache.Get("sentiment", "query", q, &out) {
		return &out, nil
	}
	if err := postJSON(ctx, s.client, "sentiment", "/api/v1/sentiment/query", q, &out); err != nil {
		return nil, err
	}
	_ = s.cache.Set("sentiment", "query", q, &out)
	return &out, nil
}
