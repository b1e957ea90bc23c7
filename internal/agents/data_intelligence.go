package agents

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/consts"
	"github.com/dyike/CortexCommittee/internal/fanout"
	"github.com/dyike/CortexCommittee/internal/llm"
	"github.com/dyike/CortexCommittee/internal/models"
)

// DataSources is the read-only adapter surface the specialist collects from.
type DataSources interface {
	Sentiment(ctx context.Context, req *models.AnalysisRequest) (map[string]any, error)
	MarketContext(ctx context.Context, req *models.AnalysisRequest) (map[string]any, error)
	News(ctx context.Context, req *models.AnalysisRequest) ([]models.NewsItem, error)
	Quotes(ctx context.Context, req *models.AnalysisRequest) ([]models.QuoteSnapshot, error)
}

// source reliability when the source answered
var sourceReliability = map[string]float64{
	"market_context": 0.9,
	"sentiment":      0.7,
	"news":           0.7,
	"quotes":         0.85,
}

var ErrNoData = errors.New("no data source answered")

type DataIntelligenceSpecialist struct {
	role
	sources DataSources
}

func NewDataIntelligenceSpecialist(gw *llm.Gateway, sources DataSources, logger *zap.Logger) *DataIntelligenceSpecialist {
	return &DataIntelligenceSpecialist{
		role:    newRole(consts.DataIntelligenceSpecialist, "data_intelligence", 0.1, gw, logger),
		sources: sources,
	}
}

type dataAssessment struct {
	SentimentQuality *float64 `json:"sentiment_quality"`
	Anomalies        []string `json:"anomalies"`
	Summary          string   `json:"summary"`
}

// Collect gathers every source in parallel, then asks the model to grade what came back.
// Each source degrades to an empty payload on its own.
func (s *DataIntelligenceSpecialist) Collect(ctx context.Context, req *models.AnalysisRequest) (*models.DataIntelligenceReport, error) {
	report := &models.DataIntelligenceReport{SourceQuality: map[string]float64{}}
	answered := 0
	if s.sources != nil {
		answered = s.gather(ctx, req, report)
	}

	assessment, err := ask[dataAssessment](ctx, &s.role, req, s.digest(report, answered))
	if err != nil {
		if answered == 0 {
			return nil, fmt.Errorf("%w: %v", ErrNoData, err)
		}
		report.SentimentQuality = 0.6
		report.Anomalies = []string{"automated data check unavailable, manual review advised"}
		return report, nil
	}
	report.SentimentQuality = 0.7
	if assessment.SentimentQuality != nil {
		report.SentimentQuality = clamp01(*assessment.SentimentQuality)
	}
	report.Anomalies = assessment.Anomalies
	report.Summary = assessment.Summary
	return report, nil
}

func (s *DataIntelligenceSpecialist) gather(ctx context.Context, req *models.AnalysisRequest, report *models.DataIntelligenceReport) int {
	names := []string{"sentiment", "market_context", "news", "quotes"}
	tasks := []fanout.Task[any]{
		func(ctx context.Context) (any, error) { return s.sources.Sentiment(ctx, req) },
		func(ctx context.Context) (any, error) { return s.sources.MarketContext(ctx, req) },
		func(ctx context.Context) (any, error) { return s.sources.News(ctx, req) },
		func(ctx context.Context) (any, error) { return s.sources.Quotes(ctx, req) },
	}
	results := fanout.Run(ctx, tasks, fanout.WithLogger(s.logger), fanout.WithNames(names...))

	answered := 0
	for i, r := range results {
		name := names[i]
		if !r.OK() {
			report.SourceQuality[name] = 0
			continue
		}
		answered++
		report.SourceQuality[name] = sourceReliability[name]
		switch v := r.Value.(type) {
		case map[string]any:
			if name == "sentiment" {
				report.Sentiment = v
			} else {
				report.MarketContext = v
			}
		case []models.NewsItem:
			report.News = v
		case []models.QuoteSnapshot:
			report.Quotes = v
		}
	}
	return answered
}

func (s *DataIntelligenceSpecialist) digest(r *models.DataIntelligenceReport, answered int) string {
	if answered == 0 {
		return "No source returned data."
	}
	return brief("Sentiment", r.Sentiment, 600) +
		brief("Market context", r.MarketContext, 600) +
		brief("News", r.News, 800) +
		brief("Quotes", r.Quotes, 400) +
		brief("Source availability", r.SourceQuality, 200)
}
