package dataflows

import (
	"errors"
	"fmt"
)

// ErrSourceDisabled is returned by a source that is switched off in config or has no credentials.
var ErrSourceDisabled = errors.New("data source disabled")

// SourceError describes a failed call against one upstream.
type SourceError struct {
	Source string
	URL    string
	Status int
	Err    error
}

func (e *SourceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s returned %d", e.Source, e.URL, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.URL, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// SentimentQuery is the body of POST /api/v1/sentiment/query.
type SentimentQuery struct {
	Keywords           []string `json:"keywords"`
	Symbols            []string `json:"symbols"`
	TimeRange          string   `json:"time_range"`
	DataSources        []string `json:"data_sources"`
	SentimentThreshold float64  `json:"sentiment_threshold"`
	Language           string   `json:"language,omitempty"`
	Region             string   `json:"region,omitempty"`
	MaxResults         int      `json:"max_results"`
	IncludeAnalysis    bool     `json:"include_analysis"`
}

type SentimentPoint struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	SourceType     string  `json:"source_type"`
	URL            string  `json:"url,omitempty"`
	SentimentScore float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label"`
	Confidence     float64 `json:"confidence"`
}

type SentimentResponse struct {
	DataPoints []SentimentPoint `json:"data_points"`
	Analysis   map[string]any   `json:"analysis,omitempty"`
}

// Summary condenses the response into the shape analysts read.
func (r *SentimentResponse) Summary() map[string]any {
	out := map[string]any{"points": len(r.DataPoints)}
	if len(r.DataPoints) == 0 {
		return out
	}
	labels := map[string]int{}
	var score, conf float64
	for _, p := range r.DataPoints {
		score += p.SentimentScore
		conf += p.Confidence
		label := p.SentimentLabel
		if label == "" {
			label = "neutral"
		}
		labels[label]++
	}
	n := float64(len(r.DataPoints))
	out["avg_score"] = score / n
	out["avg_confidence"] = conf / n
	out["labels"] = labels
	if len(r.Analysis) > 0 {
		out["analysis"] = r.Analysis
	}
	return out
}

// MarketContextResponse is the {success, data, message} envelope of the stock service.
type MarketContextResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Message string         `json:"message"`
}
