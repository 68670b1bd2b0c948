// Package gateway implements C2: the AI Gateway. It wraps the Anthropic
// API behind Compressor, Summarizer, Embedder, and Reranker interfaces,
// grounded directly on the teacher's internal/compact/haiku.go (retry
// classification, OTel instrumentation, template-rendered prompts).
package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrAPIKeyRequired is returned when no Anthropic API key is available.
var ErrAPIKeyRequired = errors.New("gateway: API key required")

// Compressor reduces raw tool output into an Observation-shaped summary.
type Compressor interface {
	Compress(ctx context.Context, rawOutput, toolName string) (CompressedObservation, error)
}

// Summarizer produces a session-completion summary from its observations.
type Summarizer interface {
	Summarize(ctx context.Context, sessionNarrative string) (string, error)
}

// Embedder produces a dense vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker reorders candidate observations by relevance to a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []string) ([]int, error)
}

// CompressedObservation is the structured result of a Compress call.
type CompressedObservation struct {
	Type      string
	Title     string
	Subtitle  string
	Facts     []string
	Narrative string
	Concepts  []string
}

// Gateway implements Compressor, Summarizer, Embedder, and Reranker on top
// of a single Anthropic client, mirroring the teacher's single
// haikuClient doing compaction for every call shape it needs.
type Gateway struct {
	client           anthropic.Client
	model            anthropic.Model
	embedModel       string
	compressTemplate *template.Template
	summarizeTmpl    *template.Template
	rerankTmpl       *template.Template
	limiter          *Limiter
	retryPolicy      RetryPolicy
	embedGroup       *embedGroup
	metrics          *gatewayMetrics
}

// Options configures New.
type Options struct {
	APIKey      string
	Model       string
	EmbedModel  string
	MaxRetries  int
	RateLimitRPS float64
}

// New builds a Gateway. The ANTHROPIC_API_KEY environment variable takes
// precedence over an explicit key, matching the teacher's newHaikuClient.
func New(opts Options) (*Gateway, error) {
	apiKey := opts.APIKey
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or configure gateway.apiKey", ErrAPIKeyRequired)
	}

	model := opts.Model
	if model == "" {
		model = string(anthropic.ModelClaude3_5HaikuLatest)
	}

	compressTmpl, err := template.New("compress").Parse(compressPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse compress template: %w", err)
	}
	summarizeTmpl, err := template.New("summarize").Parse(summarizePromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse summarize template: %w", err)
	}
	rerankTmpl, err := template.New("rerank").Parse(rerankPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse rerank template: %w", err)
	}

	rps := opts.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	initGatewayMetricsOnce()

	return &Gateway{
		client:           anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:            anthropic.Model(model),
		embedModel:       opts.EmbedModel,
		compressTemplate: compressTmpl,
		summarizeTmpl:    summarizeTmpl,
		rerankTmpl:       rerankTmpl,
		limiter:          NewLimiter(model, rps),
		retryPolicy:      RetryPolicy{MaxRetries: maxRetries, InitialBackoff: time.Second},
		embedGroup:       newEmbedGroup(),
		metrics:          gatewayMetricsInstance(),
	}, nil
}
