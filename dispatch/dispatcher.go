package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"timeline-agent/config"
	"timeline-agent/events"
	"timeline-agent/metrics"
	"timeline-agent/models"
	"timeline-agent/pagesource"
	"timeline-agent/textservice"
)

const (
	DerivationReply   = "reply"
	DerivationSummary = "summary_post"
)

const (
	kindReply   = "reply"
	kindSummary = "summary"
)

var (
	// ErrGenerationFailed is returned when no usable text could be generated.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrPostingFailed is returned when every posting attempt failed.
	ErrPostingFailed = errors.New("posting failed")
	// ErrNoSources is returned when a summary is requested for zero posts.
	ErrNoSources = errors.New("no source posts")
)

type Outcome int

const (
	OutcomePosted Outcome = iota + 1
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePosted:
		return "posted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Poster publishes text on the platform.
type Poster interface {
	PostReply(ctx context.Context, postID, text string) (pagesource.Result, error)
	PostNewContent(ctx context.Context, text string) (pagesource.Result, error)
}

// Store is the part of the record store the dispatcher writes to.
type Store interface {
	InsertReply(ctx context.Context, r *models.Reply) error
	InsertSummaryPost(ctx context.Context, s *models.SummaryPost) error
}

// Dispatcher generates reply and summary text once, posts it with bounded
// retries and records only what was actually posted.
type Dispatcher struct {
	svc     textservice.Service
	poster  Poster
	store   Store
	emitter *events.Emitter
	metrics *metrics.Metrics
	cfg     config.DispatchConfig
	now     func() time.Time
}

func NewDispatcher(svc textservice.Service, poster Poster, store Store, emitter *events.Emitter, cfg config.DispatchConfig, m *metrics.Metrics) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ReplyMaxChars <= 0 {
		cfg.ReplyMaxChars = 100
	}
	if cfg.SummaryMaxChars <= 0 {
		cfg.SummaryMaxChars = 200
	}
	return &Dispatcher{
		svc:     svc,
		poster:  poster,
		store:   store,
		emitter: emitter,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Reply answers post. A reply row is written only after the post succeeded.
func (d *Dispatcher) Reply(ctx context.Context, post models.Post) (Outcome, error) {
	text, err := d.generate(ctx, textservice.CompletionRequest{
		Derivation:  DerivationReply,
		System:      REPLY_SYSTEM,
		User:        replyPrompt(post.Content, d.cfg.ReplyMaxChars),
		MaxTokens:   100,
		Temperature: 0.7,
	})
	if err != nil {
		return d.fail(ctx, kindReply, err)
	}

	res, err := d.post(ctx, kindReply, func() (pagesource.Result, error) {
		return d.poster.PostReply(ctx, post.PostID, text)
	})
	if err != nil {
		config.WarnWithFields("reply not posted", config.Fields{"post_id": post.PostID, "error": err})
		return d.fail(ctx, kindReply, err)
	}

	reply := &models.Reply{
		OriginalPostID: post.PostID,
		Content:        text,
		Status:         models.StatusPosted,
		Strategy:       res.Strategy,
		CreatedAt:      d.now().UTC(),
	}
	// 게시는 이미 끝났으므로 사이클이 취소되어도 기록은 남긴다.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := d.store.InsertReply(writeCtx, reply); err != nil {
		config.ErrorWithFields("reply posted but not recorded", config.Fields{"post_id": post.PostID, "error": err})
		d.metrics.Action(kindReply, "unrecorded")
		return OutcomePosted, err
	}

	d.metrics.Action(kindReply, OutcomePosted.String())
	d.emitter.ReplyPosted(ctx, *reply)
	config.InfoWithFields("reply posted", config.Fields{"post_id": post.PostID, "strategy": res.Strategy})
	return OutcomePosted, nil
}

// PublishSummary posts one synthesis of posts and records their ids as used.
func (d *Dispatcher) PublishSummary(ctx context.Context, posts []models.Post) (Outcome, error) {
	if len(posts) == 0 {
		return OutcomeFailed, ErrNoSources
	}

	text, err := d.generate(ctx, textservice.CompletionRequest{
		Derivation:  DerivationSummary,
		System:      SUMMARY_SYSTEM,
		User:        summaryPrompt(posts, d.cfg.SummaryMaxChars),
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return d.fail(ctx, kindSummary, err)
	}

	res, err := d.post(ctx, kindSummary, func() (pagesource.Result, error) {
		return d.poster.PostNewContent(ctx, text)
	})
	if err != nil {
		config.WarnWithFields("summary not posted", config.Fields{"sources": len(posts), "error": err})
		return d.fail(ctx, kindSummary, err)
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	summary := &models.SummaryPost{
		Content:       text,
		SourcePostIDs: ids,
		Status:        models.StatusPosted,
		Strategy:      res.Strategy,
		CreatedAt:     d.now().UTC(),
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := d.store.InsertSummaryPost(writeCtx, summary); err != nil {
		config.ErrorWithFields("summary posted but not recorded", config.Fields{"sources": ids, "error": err})
		d.metrics.Action(kindSummary, "unrecorded")
		return OutcomePosted, err
	}

	d.metrics.Action(kindSummary, OutcomePosted.String())
	d.emitter.SummaryPosted(ctx, *summary)
	config.InfoWithFields("summary posted", config.Fields{"sources": len(ids), "strategy": res.Strategy})
	return OutcomePosted, nil
}

// generate calls the text service exactly once.
func (d *Dispatcher) generate(ctx context.Context, req textservice.CompletionRequest) (string, error) {
	out, err := d.svc.Complete(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text := Sanitize(out)
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrGenerationFailed)
	}
	return text, nil
}

// post runs fn up to MaxAttempts times. Cancellation and a press of the post
// button that could not be verified are never retried.
func (d *Dispatcher) post(ctx context.Context, kind string, fn func() (pagesource.Result, error)) (pagesource.Result, error) {
	builder := retrypolicy.NewBuilder[pagesource.Result]().
		WithMaxRetries(d.cfg.MaxAttempts - 1).
		HandleIf(func(_ pagesource.Result, err error) bool {
			return err != nil && ctx.Err() == nil && !errors.Is(err, pagesource.ErrUnverified)
		}).
		OnRetry(func(e failsafe.ExecutionEvent[pagesource.Result]) {
			config.Logger.Debugf("[%s] retrying post, attempt %d: %v", kind, e.Attempts()+1, e.LastError())
		})
	if d.cfg.Backoff > 0 {
		builder = builder.WithBackoff(d.cfg.Backoff, max(d.cfg.MaxBackoff, d.cfg.Backoff))
	}

	res, err := failsafe.With[pagesource.Result](builder.Build()).WithContext(ctx).Get(func() (pagesource.Result, error) {
		d.metrics.PostAttempt(kind)
		return fn()
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("%w: %w", ErrPostingFailed, err)
	}
	return res, nil
}

func (d *Dispatcher) fail(ctx context.Context, kind string, err error) (Outcome, error) {
	if ctx.Err() != nil {
		d.metrics.Action(kind, "cancelled")
		return OutcomeFailed, ctx.Err()
	}
	d.metrics.Action(kind, OutcomeFailed.String())
	return OutcomeFailed, err
}
