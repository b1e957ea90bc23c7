package dataflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/fanout"
	"github.com/dyike/CortexCommittee/internal/models"
)

// Hub bundles the read-only data adapters. A nil adapter reports ErrSourceDisabled.
type Hub struct {
	sentiment *SentimentClient
	stock     *StockClient
	news      *NewsClient
	quotes    []QuoteSource
	logger    *zap.Logger
}

func NewHub(cfg config.Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.DataTimeoutSec) * time.Second
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	cacheFor := func(name string) *Cache {
		return NewCache(filepath.Join(cfg.DataCacheDir, name), ttl, cfg.CacheEnabled)
	}

	h := &Hub{logger: logger.Named("dataflows")}
	if cfg.SentimentAPIURL != "" {
		h.sentiment = NewSentimentClient(cfg.SentimentAPIURL, cfg.SentimentAPIKey, timeout, cacheFor("sentiment"))
	}
	if cfg.StockAPIURL != "" {
		h.stock = NewStockClient(cfg.StockAPIURL, timeout)
	}
	if cfg.NewsEnabled {
		h.news = NewNewsClient("", cfg.NewsLocale, timeout, cacheFor("google_news"))
	}
	if cfg.QuotesEnabled {
		lp := NewLongportQuotes(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken)
		if lp.Configured() {
			h.quotes = append(h.quotes, lp)
		}
		h.quotes = append(h.quotes, NewYahooQuotes(cacheFor("yahoo_finance")))
	}
	return h
}

// NewHubWith assembles a hub from explicit adapters; any may be nil.
func NewHubWith(sentiment *SentimentClient, stock *StockClient, news *NewsClient, quotes []QuoteSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{sentiment: sentiment, stock: stock, news: news, quotes: quotes, logger: logger}
}

func (h *Hub) Sentiment(ctx context.Context, req *models.AnalysisRequest) (map[string]any, error) {
	if h.sentiment == nil {
		return nil, fmt.Errorf("sentiment: %w", ErrSourceDisabled)
	}
	resp, err := h.sentiment.Query(ctx, SentimentQuery{
		Keywords:        keywords(req),
		Symbols:         req.Symbols,
		Region:          req.Region,
		IncludeAnalysis: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Summary(), nil
}

func (h *Hub) MarketContext(ctx context.Context, req *models.AnalysisRequest) (map[string]any, error) {
	if h.stock == nil {
		return nil, fmt.Errorf("stock: %w", ErrSourceDisabled)
	}
	if len(req.Symbols) == 0 {
		return map[string]any{}, nil
	}
	return h.stock.MarketContext(ctx, req.Symbols, string(req.TimeHorizon))
}

func (h *Hub) News(ctx context.Context, req *models.AnalysisRequest) ([]models.NewsItem, error) {
	if h.news == nil {
		return nil, fmt.Errorf("news: %w", ErrSourceDisabled)
	}
	return h.news.Search(ctx, strings.Join(keywords(req), " "), 10)
}

// Quotes snapshots every symbol in parallel, trying each quote source in order.
// Symbols no source can price are skipped.
func (h *Hub) Quotes(ctx context.Context, req *models.AnalysisRequest) ([]models.QuoteSnapshot, error) {
	if len(h.quotes) == 0 {
		return nil, fmt.Errorf("quotes: %w", ErrSourceDisabled)
	}
	tasks := make([]fanout.Task[models.QuoteSnapshot], len(req.Symbols))
	for i, sym := range req.Symbols {
		tasks[i] = func(ctx context.Context) (models.QuoteSnapshot, error) {
			return h.snapshot(ctx, sym)
		}
	}
	results := fanout.Run(ctx, tasks, fanout.WithLogger(h.logger), fanout.WithNames(req.Symbols...))

	snaps := make([]models.QuoteSnapshot, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.OK() {
			snaps = append(snaps, r.Value)
		} else {
			errs = append(errs, r.Err)
		}
	}
	if len(snaps) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snaps, nil
}

func (h *Hub) snapshot(ctx context.Context, symbol string) (models.QuoteSnapshot, error) {
	var errs []error
	for _, src := range h.quotes {
		snap, err := src.Snapshot(ctx, symbol)
		if err == nil {
			return snap, nil
		}
		h.logger.Debug("quote source failed", zap.String("source", src.Name()), zap.String("symbol", symbol), zap.Error(err))
		errs = append(errs, err)
	}
	return models.QuoteSnapshot{}, errors.Join(errs...)
}

func (h *Hub) Close() {
	for _, src := range h.quotes {
		if lp, ok := src.(*LongportQuotes); ok {
			lp.Close()
		}
	}
}

func keywords(req *models.AnalysisRequest) []string {
	kw := []string{req.Topic}
	if req.Headline != "" && req.Headline != req.Topic {
		kw = append(kw, req.Headline)
	}
	return append(kw, req.Symbols...)
}
