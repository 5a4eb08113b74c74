package enrichment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"timeline-agent/config"
	"timeline-agent/metrics"
	"timeline-agent/models"
	"timeline-agent/textservice"
)

const (
	DerivationSummary   = "summary"
	DerivationEmbedding = "embedding"
	DerivationScore     = "insight_score"
	DerivationTopics    = "topics"
	DerivationTokens    = "tokens"
)

// Engine derives annotations from post text. It performs no storage.
type Engine struct {
	svc         textservice.Service
	concurrency int
	metrics     *metrics.Metrics
}

// NewEngine creates an engine that issues at most concurrency derivation calls at once.
func NewEngine(svc textservice.Service, concurrency int, m *metrics.Metrics) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{svc: svc, concurrency: concurrency, metrics: m}
}

// Enrich runs every derivation. A failed derivation never blocks the others;
// it gets its default (empty summary, empty vector, score 50, no topics, no tokens).
func (e *Engine) Enrich(ctx context.Context, content string) models.Enrichment {
	out := models.Enrichment{
		Summary:      "",
		Embedding:    []float32{},
		InsightScore: DefaultInsightScore,
		Topics:       []string{},
		Tokens:       []string{},
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	g.Go(func() error {
		text, err := e.complete(ctx, DerivationSummary, SUMMARY_SYSTEM, summaryUserFormat, content, 60, 0.7)
		if err == nil {
			out.Summary = text
		}
		return nil
	})
	g.Go(func() error {
		vec, err := e.svc.Embed(ctx, content)
		e.observe(DerivationEmbedding, err)
		if err == nil && vec != nil {
			out.Embedding = vec
		}
		return nil
	})
	g.Go(func() error {
		text, err := e.complete(ctx, DerivationScore, SCORE_SYSTEM, scoreUserFormat, content, 10, 0.3)
		if err == nil {
			out.InsightScore = ParseInsightScore(text)
		}
		return nil
	})
	g.Go(func() error {
		text, err := e.complete(ctx, DerivationTopics, TOPICS_SYSTEM, topicsUserFormat, content, 50, 0.3)
		if err == nil {
			out.Topics = ParseTopics(text)
		}
		return nil
	})
	g.Go(func() error {
		text, err := e.complete(ctx, DerivationTokens, TOKENS_SYSTEM, tokensUserFormat, content, 50, 0.3)
		if err == nil {
			out.Tokens = ParseTokens(text)
		}
		return nil
	})
	_ = g.Wait()

	return out
}

func (e *Engine) complete(ctx context.Context, derivation, system, userFormat, content string, maxTokens int32, temperature float32) (string, error) {
	text, err := e.svc.Complete(ctx, textservice.CompletionRequest{
		Derivation:  derivation,
		System:      system,
		User:        fmt.Sprintf(userFormat, content),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	e.observe(derivation, err)
	return text, err
}

func (e *Engine) observe(derivation string, err error) {
	e.metrics.Derivation(derivation, err == nil)
	if err != nil {
		config.WarnWithFields("enrichment derivation failed, using default", config.Fields{
			"derivation": derivation,
			"error":      err.Error(),
		})
	}
}
