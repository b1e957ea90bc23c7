package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/dyike/CortexCommittee/config"
	"go.uber.org/zap"
)

var versionSuffix = regexp.MustCompile(`/v\d+$`)

// NormalizeBaseURL turns whatever endpoint the user configured into the base URL an
// OpenAI-compatible client expects, e.g. http://host:8002/v1.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	u = strings.TrimRight(u, "/")
	if u == "" {
		return ""
	}
	if !versionSuffix.MatchString(u) {
		u += "/v1"
	}
	return u
}

// NewChatModel builds the chat model named by cfg.LLMProvider.
func NewChatModel(ctx context.Context, cfg config.Config) (Generator, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "deepseek":
		maxTokens := cfg.LLMMaxTokens
		if maxTokens <= 0 {
			maxTokens = 2000
		}
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     cfg.LLMModel,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek model: %w", err)
		}
		return cm, nil
	case "openai", "":
		conf := &openai.ChatModelConfig{
			BaseURL: NormalizeBaseURL(cfg.LLMBaseURL),
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
		}
		if cfg.LLMMaxTokens > 0 {
			maxTokens := cfg.LLMMaxTokens
			conf.MaxTokens = &maxTokens
		}
		cm, err := openai.NewChatModel(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

// NewGatewayFromConfig wires the configured chat model behind a retrying Gateway.
func NewGatewayFromConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Gateway, error) {
	gen, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewGateway(gen,
		WithModelName(cfg.LLMModel),
		WithMaxAttempts(cfg.LLMMaxAttempts),
		WithLogger(logger),
	), nil
}
