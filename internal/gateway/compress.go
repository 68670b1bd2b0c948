package gateway

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

type compressData struct {
	ToolName  string
	RawOutput string
}

// Compress implements Compressor, grounded on haiku.go's SummarizeTier1 /
// renderTier1Prompt / callWithRetry sequence, generalized from "issue
// compaction" to "tool output compaction".
func (g *Gateway) Compress(ctx context.Context, rawOutput, toolName string) (CompressedObservation, error) {
	var buf bytes.Buffer
	if err := g.compressTemplate.Execute(&buf, compressData{ToolName: toolName, RawOutput: rawOutput}); err != nil {
		return CompressedObservation{}, fmt.Errorf("gateway: render compress prompt: %w", err)
	}
	prompt := buf.String()

	if err := g.limiter.Wait(ctx); err != nil {
		return CompressedObservation{}, fmt.Errorf("gateway: rate limit wait: %w", err)
	}

	var text string
	err := callWithBackoff(ctx, g.retryPolicy, func() error {
		return g.instrumentedCall(ctx, "compress", func(ctx context.Context) (int64, int64, error) {
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
		return CompressedObservation{}, err
	}

	return parseCompressedObservation(text), nil
}

func parseCompressedObservation(text string) CompressedObservation {
	var out CompressedObservation
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TYPE:"):
			out.Type = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "TYPE:")))
		case strings.HasPrefix(line, "TITLE:"):
			out.Title = strings.TrimSpace(strings.TrimPrefix(line, "TITLE:"))
		case strings.HasPrefix(line, "SUBTITLE:"):
			out.Subtitle = strings.TrimSpace(strings.TrimPrefix(line, "SUBTITLE:"))
		case strings.HasPrefix(line, "FACTS:"):
			out.Facts = splitNonEmpty(strings.TrimPrefix(line, "FACTS:"), ";")
		case strings.HasPrefix(line, "CONCEPTS:"):
			out.Concepts = splitNonEmpty(strings.TrimPrefix(line, "CONCEPTS:"), ",")
		case strings.HasPrefix(line, "NARRATIVE:"):
			out.Narrative = strings.TrimSpace(strings.TrimPrefix(line, "NARRATIVE:"))
		}
	}
	return out
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
