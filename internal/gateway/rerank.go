package gateway

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

type rerankData struct {
	Query      string
	Candidates []string
}

// Rerank implements Reranker, asking the model to return a relevance
// permutation over candidate indexes. Callers fall back to the heuristic
// reranker in internal/retrieval when this returns an error, per spec.md's
// graceful-degradation requirement.
func (g *Gateway) Rerank(ctx context.Context, query string, candidates []string) ([]int, error) {
	var buf bytes.Buffer
	if err := g.rerankTmpl.Execute(&buf, rerankData{Query: query, Candidates: candidates}); err != nil {
		return nil, fmt.Errorf("gateway: render rerank prompt: %w", err)
	}
	prompt := buf.String()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gateway: rate limit wait: %w", err)
	}

	var text string
	err := callWithBackoff(ctx, g.retryPolicy, func() error {
		return g.instrumentedCall(ctx, "rerank", func(ctx context.Context) (int64, int64, error) {
			resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
				Model:     g.model,
				MaxTokens: 256,
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
		return nil, err
	}

	return parseRerankOrder(text, len(candidates))
}

func parseRerankOrder(text string, n int) ([]int, error) {
	text = strings.TrimSpace(text)
	parts := strings.Split(text, ",")
	seen := make(map[int]bool, n)
	var order []int
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		order = append(order, idx)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("gateway: rerank response contained no valid indexes")
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order, nil
}
