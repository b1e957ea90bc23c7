package dataflows

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lpconfig "github.com/longportapp/openapi-go/config"
	lpquote "github.com/longportapp/openapi-go/quote"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexCommittee/internal/models"
)

// QuoteSource returns a point-in-time snapshot for one symbol.
type QuoteSource interface {
	Name() string
	Snapshot(ctx context.Context, symbol string) (models.QuoteSnapshot, error)
}

func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 12 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	return nil
}

// ChangePct returns the percentage move from prev to price, rounded to two places.
func ChangePct(price, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	p := decimal.NewFromFloat(price)
	b := decimal.NewFromFloat(prev)
	pct, _ := p.Sub(b).Div(b).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return pct
}

// YahooQuotes reads quotes through finance-go.
type YahooQuotes struct {
	cache *Cache
	fetch func(symbol string) (*finance.Quote, error)
}

func NewYahooQuotes(cache *Cache) *YahooQuotes {
	return &YahooQuotes{cache: cache, fetch: quote.Get}
}

func (y *YahooQuotes) Name() string { return "yahoo" }

func (y *YahooQuotes) Snapshot(ctx context.Context, symbol string) (models.QuoteSnapshot, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return models.QuoteSnapshot{}, err
	}
	symbol = NormalizeSymbol(symbol)

	var snap models.QuoteSnapshot
	if y.cache.Get("yahoo", "quote", symbol, &snap) {
		return snap, nil
	}
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	q, err := y.fetch(symbol)
	if err != nil {
		return snap, &SourceError{Source: "yahoo", URL: symbol, Err: err}
	}
	if q == nil {
		return snap, &SourceError{Source: "yahoo", URL: symbol, Err: fmt.Errorf("no quote")}
	}
	snap = models.QuoteSnapshot{
		Symbol:    symbol,
		Source:    y.Name(),
		Price:     q.RegularMarketPrice,
		PrevClose: q.RegularMarketPreviousClose,
		ChangePct: ChangePct(q.RegularMarketPrice, q.RegularMarketPreviousClose),
		Volume:    int64(q.RegularMarketVolume),
	}
	_ = y.cache.Set("yahoo", "quote", symbol, snap)
	return snap, nil
}

// LongportQuotes derives a snapshot from the last two daily candlesticks.
type LongportQuotes struct {
	appKey, appSecret, accessToken string

	mu       sync.Mutex
	quoteCtx *lpquote.QuoteContext
}

func NewLongportQuotes(appKey, appSecret, accessToken string) *LongportQuotes {
	return &LongportQuotes{appKey: appKey, appSecret: appSecret, accessToken: accessToken}
}

func (l *LongportQuotes) Name() string { return "longport" }

func (l *LongportQuotes) Configured() bool {
	return l.appKey != "" && l.appSecret != "" && l.accessToken != ""
}

func (l *LongportQuotes) context() (*lpquote.QuoteContext, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quoteCtx != nil {
		return l.quoteCtx, nil
	}
	if !l.Configured() {
		return nil, fmt.Errorf("longport credentials: %w", ErrSourceDisabled)
	}
	conf, err := lpconfig.New(lpconfig.WithConfigKey(l.appKey, l.appSecret, l.accessToken))
	if err != nil {
		return nil, fmt.Errorf("longport config: %w", err)
	}
	qc, err := lpquote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("longport quote context: %w", err)
	}
	l.quoteCtx = qc
	return qc, nil
}

func (l *LongportQuotes) Snapshot(ctx context.Context, symbol string) (models.QuoteSnapshot, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return models.QuoteSnapshot{}, err
	}
	symbol = longportSymbol(symbol)
	qc, err := l.context()
	if err != nil {
		return models.QuoteSnapshot{}, err
	}
	sticks, err := qc.Candlesticks(ctx, symbol, lpquote.PeriodDay, 2, lpquote.AdjustTypeNo)
	if err != nil {
		return models.QuoteSnapshot{}, &SourceError{Source: "longport", URL: symbol, Err: err}
	}
	if len(sticks) == 0 {
		return models.QuoteSnapshot{}, &SourceError{Source: "longport", URL: symbol, Err: fmt.Errorf("no candlesticks")}
	}
	last := sticks[len(sticks)-1]
	snap := models.QuoteSnapshot{
		Symbol: symbol,
		Source: l.Name(),
		Price:  toFloat(last.Close),
		Volume: int64(last.Volume),
	}
	if len(sticks) > 1 {
		snap.PrevClose = toFloat(sticks[len(sticks)-2].Close)
		snap.ChangePct = ChangePct(snap.Price, snap.PrevClose)
	}
	return snap, nil
}

func (l *LongportQuotes) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quoteCtx != nil {
		l.quoteCtx.Close()
		l.quoteCtx = nil
	}
}

// longportSymbol defaults bare tickers to the US market, e.g. AAPL -> AAPL.US.
func longportSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

type floater interface {
	Float64() (float64, bool)
}

func toFloat(v floater) (f float64) {
	// candlestick prices may arrive as nil pointers
	defer func() {
		if recover() != nil {
			f = 0
		}
	}()
	f, _ = v.Float64()
	return f
}
