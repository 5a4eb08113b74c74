package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"timeline-agent/config"
	"timeline-agent/events"
	"timeline-agent/metrics"
	"timeline-agent/models"
	"timeline-agent/parser"
	"timeline-agent/repositories"
)

// ErrInvalidInput is returned for raw posts without an id or content.
var ErrInvalidInput = errors.New("invalid raw post")

type Outcome int

const (
	OutcomeSkipped Outcome = iota + 1
	OutcomeEnriched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeEnriched:
		return "enriched"
	default:
		return "unknown"
	}
}

type Enricher interface {
	Enrich(ctx context.Context, content string) models.Enrichment
}

// Store is the part of the record store ingest needs.
type Store interface {
	FindPostByID(ctx context.Context, postID string) (*models.Post, error)
	InsertPostIfAbsent(ctx context.Context, p *models.Post) (models.InsertResult, error)
}

// Controller commits each unseen post exactly once. Known posts are skipped
// before any Text Service call is made.
type Controller struct {
	store    Store
	enricher Enricher
	emitter  *events.Emitter
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewController(store Store, enricher Enricher, emitter *events.Emitter, m *metrics.Metrics) *Controller {
	return &Controller{
		store:    store,
		enricher: enricher,
		emitter:  emitter,
		metrics:  m,
		now:      time.Now,
	}
}

func (c *Controller) Ingest(ctx context.Context, raw models.RawPost) (Outcome, error) {
	postID := strings.TrimSpace(raw.PostID)
	if postID == "" || strings.TrimSpace(raw.Content) == "" {
		c.metrics.Ingested("invalid")
		return 0, fmt.Errorf("%w: post_id=%q", ErrInvalidInput, raw.PostID)
	}

	if _, err := c.store.FindPostByID(ctx, postID); err == nil {
		c.metrics.Ingested("skipped")
		return OutcomeSkipped, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		c.metrics.Ingested("error")
		return 0, fmt.Errorf("lookup post %s: %w", postID, err)
	}

	enrichment := c.enricher.Enrich(ctx, raw.Content)
	// 취소된 사이클의 보강 결과는 저장하지 않는다.
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	observedAt := c.now().UTC()
	post := &models.Post{
		PostID:      postID,
		Content:     raw.Content,
		Author:      raw.Author,
		PublishedAt: parser.ParseTimestamp(raw.Timestamp, observedAt),
		ObservedAt:  observedAt,
		Hashtags:    raw.Hashtags,
		Mentions:    raw.Mentions,
		URLs:        raw.URLs,
		MediaURLs:   raw.MediaURLs,
	}
	if post.Hashtags == nil && post.Mentions == nil && post.URLs == nil {
		post.Hashtags, post.Mentions, post.URLs = parser.ParseEntities(raw.Content)
	}
	post.Hashtags = nonNil(post.Hashtags)
	post.Mentions = nonNil(post.Mentions)
	post.URLs = nonNil(post.URLs)
	post.MediaURLs = nonNil(post.MediaURLs)
	post.ApplyEnrichment(enrichment)

	res, err := c.store.InsertPostIfAbsent(ctx, post)
	if err != nil {
		c.metrics.Ingested("error")
		return 0, fmt.Errorf("insert post %s: %w", postID, err)
	}
	if res == models.AlreadyPresent {
		// 다른 수집기가 먼저 저장했다.
		c.metrics.Ingested("skipped")
		return OutcomeSkipped, nil
	}

	c.metrics.Ingested("enriched")
	config.InfoWithFields("post ingested", config.Fields{
		"post_id":       postID,
		"author":        post.Author,
		"insight_score": post.Score(),
		"topics":        post.Topics,
	})
	c.emitter.PostIngested(ctx, *post)
	return OutcomeEnriched, nil
}

// BatchResult counts what happened to each post of a batch.
type BatchResult struct {
	Enriched int
	Skipped  int
	Invalid  int
	Failed   int
}

// IngestBatch ingests posts in scrape order. Invalid posts and store failures
// are logged and skipped; cancellation stops the batch.
func (c *Controller) IngestBatch(ctx context.Context, raws []models.RawPost) (BatchResult, error) {
	var res BatchResult
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		outcome, err := c.Ingest(ctx, raw)
		switch {
		case err == nil && outcome == OutcomeEnriched:
			res.Enriched++
		case err == nil:
			res.Skipped++
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return res, err
		case errors.Is(err, ErrInvalidInput):
			res.Invalid++
			config.Logger.Warnf("drop raw post: %v", err)
		default:
			res.Failed++
			config.Logger.Errorf("ingest failed: %v", err)
		}
	}
	return res, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
