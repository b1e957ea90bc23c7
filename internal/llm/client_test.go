package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"
)

type scriptedModel struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.replies) {
		return schema.AssistantMessage(m.replies[i], nil), nil
	}
	return schema.AssistantMessage("", nil), nil
}

func newTestGateway(m Generator) *Gateway {
	g := NewGateway(m, WithModelName("test"))
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

func TestStructuredJSONExtractsObject(t *testing.T) {
	m := &scriptedModel{replies: []string{"Sure!\n```json\n{\"meme_potential\": 0.8}\n```"}}
	out, err := newTestGateway(m).StructuredJSON(context.Background(), "sys", "user", 0.1)
	require.NoError(t, err)
	require.Equal(t, 0.8, out["meme_potential"])
	require.Equal(t, 1, m.calls)
}

func TestStructuredJSONRetriesMalformed(t *testing.T) {
	m := &scriptedModel{replies: []string{"no json here", "{broken", `{"ok": true}`}}
	out, err := newTestGateway(m).StructuredJSON(context.Background(), "sys", "user", 0.1)
	require.NoError(t, err)
	require.Equal(t, true, out["ok"])
	require.Equal(t, 3, m.calls)
}

func TestStructuredJSONSurfacesServiceError(t *testing.T) {
	boom := errors.New("connection refused")
	m := &scriptedModel{errs: []error{boom, boom, boom, boom}}
	_, err := newTestGateway(m).StructuredJSON(context.Background(), "sys", "user", 0.1)

	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, 3, serr.Attempts)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, m.calls)
}

func TestDecodeTyped(t *testing.T) {
	type verdict struct {
		Action     string  `json:"action"`
		Confidence float64 `json:"confidence"`
	}
	m := &scriptedModel{replies: []string{`{"action":"buy","confidence":0.72}`}}
	v, err := Decode[verdict](context.Background(), newTestGateway(m), "sys", "user", 0.2)
	require.NoError(t, err)
	require.Equal(t, verdict{Action: "buy", Confidence: 0.72}, v)
}

func TestNilGatewayFailsFast(t *testing.T) {
	var g *Gateway
	_, err := g.StructuredJSON(context.Background(), "s", "u", 0)
	var serr *ServiceError
	require.ErrorAs(t, err, &serr)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	m := &scriptedModel{replies: []string{"nope", "nope", "nope"}}
	g := NewGateway(m)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.StructuredJSON(ctx, "s", "u", 0)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, m.calls)
}

func TestBackoffIsCapped(t *testing.T) {
	g := NewGateway(nil)
	require.Equal(t, 500*time.Millisecond, g.backoff(1))
	require.Equal(t, time.Second, g.backoff(2))
	require.Equal(t, 2*time.Second, g.backoff(3))
	require.Equal(t, 3*time.Second, g.backoff(4))
}

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON(`prefix {"a": {"b": 1}} suffix`)
	require.NoError(t, err)
	require.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = ExtractJSON("} backwards {")
	require.ErrorIs(t, err, ErrMalformedJSON)
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8002/v1/chat/completions": "http://localhost:8002/v1",
		"http://localhost:8002/":                    "http://localhost:8002/v1",
		"https://api.deepseek.com/v1":               "https://api.deepseek.com/v1",
		"":                                          "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeBaseURL(in), in)
	}
}

func TestRender(t *testing.T) {
	out, err := Render(context.Background(), "Topic: {topic} / {symbols}", map[string]any{
		"topic":   "tariffs",
		"symbols": "AAPL",
	})
	require.NoError(t, err)
	require.Equal(t, "Topic: tariffs / AAPL", out)
}
