// Package ai wraps the remote language-model service used to classify
// inbound replies, translate digests, and generate greeting forms. Every
// entry point degrades to a deterministic fallback; callers never see a
// classification failure.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"campaign-inbox-go/internal/config"
)

// Client defines the language-model operations used by the pipeline.
type Client interface {
	// Complete sends one system+user prompt pair and returns the text of
	// the response.
	Complete(ctx context.Context, system, user string) (string, error)
}

// sdkClient implements Client using the official anthropic-sdk-go,
// guarded by a rate limiter sized to the remote service's quota and a
// per-call timeout so a slow classifier cannot stall ingestion.
type sdkClient struct {
	client  sdk.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewClient creates a rate-limited Anthropic client from configuration.
// Returns nil when no API key is configured; callers treat a nil Client
// as "fallback only".
func NewClient(cfg *config.AIConfig) Client {
	if cfg.APIKey == "" {
		return nil
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &sdkClient{
		client:  sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   cfg.Model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

func (c *sdkClient) Complete(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   1024,
		Temperature: sdk.Float(0.3),
		System:      []sdk.TextBlockParam{{Text: system}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// stripCodeFences removes a leading/trailing markdown code fence so JSON
// responses wrapped in ```json blocks still parse.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
