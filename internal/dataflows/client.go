package dataflows

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "CortexCommittee/1.0"

type restOptions struct {
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	apiKey    string
}

func newRestClient(baseURL string, o restOptions) *resty.Client {
	if o.timeout <= 0 {
		o.timeout = 30 * time.Second
	}
	if o.retryWait <= 0 {
		o.retryWait = time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(o.timeout).
		SetRetryCount(o.retries).
		SetRetryWaitTime(o.retryWait).
		SetRetryMaxWaitTime(10*o.retryWait).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", userAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	if o.apiKey != "" {
		c.SetAuthToken(o.apiKey)
	}
	return c
}

// postJSON sends body to path and decodes a 2xx reply into result.
func postJSON(ctx context.Context, c *resty.Client, source, path string, body, result any) error {
	resp, err := c.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post(path)
	if err != nil {
		return &SourceError{Source: source, URL: c.BaseURL + path, Err: err}
	}
	if resp.IsError() {
		return &SourceError{Source: source, URL: c.BaseURL + path, Status: resp.StatusCode()}
	}
	return nil
}
