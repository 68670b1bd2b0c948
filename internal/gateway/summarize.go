package gateway

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

type summarizeData struct {
	SessionNarrative string
}

// Summarize implements Summarizer.
func (g *Gateway) Summarize(ctx context.Context, sessionNarrative string) (string, error) {
	var buf bytes.Buffer
	if err := g.summarizeTmpl.Execute(&buf, summarizeData{SessionNarrative: sessionNarrative}); err != nil {
		return "", fmt.Errorf("gateway: render summarize prompt: %w", err)
	}
	prompt := buf.String()

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("gateway: rate limit wait: %w", err)
	}

	var text string
	err := callWithBackoff(ctx, g.retryPolicy, func() error {
		return g.instrumentedCall(ctx, "summarize", func(ctx context.Context) (int64, int64, error) {
			resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
				Model:     g.model,
				MaxTokens: 512,
				Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
			})
			if err != nil {
				return 0, 0, err
			}
			if len(resp.Content) == 0 || resp.Content[0].Type != "text" {
				return resp.Usage.InputTokens, resp.Usage.OutputTokens, fmt.Errorf("gateway: unexpected response format")
			}
			text = resp.Content[0].Text
			return resp.Usage.InputTokens, resp.Usage.OutputTokens, nil
		})
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "SUMMARY:")), nil
}
