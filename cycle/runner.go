package cycle

import (
	"context"
	"errors"
	"time"

	"timeline-agent/config"
	"timeline-agent/dispatch"
	"timeline-agent/ingest"
	"timeline-agent/models"
	"timeline-agent/selection"
)

type Fetcher interface {
	FetchTimelinePosts(ctx context.Context, maxCount int) ([]models.RawPost, error)
}

type Ingester interface {
	IngestBatch(ctx context.Context, raws []models.RawPost) (ingest.BatchResult, error)
}

type Selector interface {
	SelectForReply(ctx context.Context, maxCount, minScore int, window time.Duration) ([]models.Post, error)
	SelectForSummary(ctx context.Context, maxCount int, selected selection.SelectedSet) ([]models.Post, selection.SelectedSet, error)
}

type Actor interface {
	Reply(ctx context.Context, post models.Post) (dispatch.Outcome, error)
	PublishSummary(ctx context.Context, posts []models.Post) (dispatch.Outcome, error)
}

type Options struct {
	MaxPosts          int
	MaxReplies        int
	MinScore          int
	Window            time.Duration
	MaxSummaryPosts   int
	SummaryHighlights int
	// ActionDelay is the gap enforced between two consecutive platform actions.
	ActionDelay time.Duration
}

func OptionsFromConfig(cfg config.AppConfig) Options {
	return Options{
		MaxPosts:          cfg.Ingest.MaxPosts,
		MaxReplies:        cfg.Selection.MaxReplies,
		MinScore:          cfg.Selection.MinScore,
		Window:            cfg.Selection.Window,
		MaxSummaryPosts:   cfg.Selection.MaxSummaryPosts,
		SummaryHighlights: cfg.Selection.SummaryHighlights,
		ActionDelay:       cfg.Dispatch.ActionDelay,
	}
}

// ActionReport counts the outcome of one reply or publish run.
type ActionReport struct {
	Selected int
	Posted   int
	Failed   int
}

// Runner composes one learn, reply or publish pass over the pipeline.
type Runner struct {
	fetcher  Fetcher
	ingester Ingester
	selector Selector
	actor    Actor
	opts     Options
	pacer    *pacer
}

func NewRunner(fetcher Fetcher, ingester Ingester, selector Selector, actor Actor, opts Options) *Runner {
	return &Runner{
		fetcher:  fetcher,
		ingester: ingester,
		selector: selector,
		actor:    actor,
		opts:     opts,
		pacer:    newPacer(opts.ActionDelay),
	}
}

// Learn scrapes the timeline and ingests what it finds.
func (r *Runner) Learn(ctx context.Context) (ingest.BatchResult, error) {
	raws, err := r.fetcher.FetchTimelinePosts(ctx, r.opts.MaxPosts)
	if err != nil {
		return ingest.BatchResult{}, err
	}
	if len(raws) == 0 {
		config.Logger.Infof("[learn] timeline returned no posts")
		return ingest.BatchResult{}, nil
	}

	res, err := r.ingester.IngestBatch(ctx, raws)
	config.InfoWithFields("learn finished", config.Fields{
		"scraped":  len(raws),
		"enriched": res.Enriched,
		"skipped":  res.Skipped,
		"invalid":  res.Invalid,
		"failed":   res.Failed,
	})
	return res, err
}

// Reply answers the selected posts one by one with ActionDelay between them.
// A failed reply does not stop the run.
func (r *Runner) Reply(ctx context.Context) (ActionReport, error) {
	posts, err := r.selector.SelectForReply(ctx, r.opts.MaxReplies, r.opts.MinScore, r.opts.Window)
	if err != nil {
		return ActionReport{}, err
	}
	report := ActionReport{Selected: len(posts)}
	if len(posts) == 0 {
		config.Logger.Infof("[reply] no posts above score %d to reply to", r.opts.MinScore)
		return report, nil
	}

	for _, post := range posts {
		if err := r.pacer.wait(ctx); err != nil {
			return report, err
		}
		outcome, err := r.actor.Reply(ctx, post)
		r.pacer.done()
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if outcome == dispatch.OutcomePosted {
			report.Posted++
		} else {
			report.Failed++
		}
		if err != nil {
			config.Logger.Warnf("[reply] %s: %v", post.PostID, err)
		}
	}
	return report, nil
}

// Publish posts SummaryHighlights single-post summaries followed by one rollup
// of the remaining candidates. No post is used twice within a run.
func (r *Runner) Publish(ctx context.Context) (ActionReport, error) {
	var (
		report   ActionReport
		selected selection.SelectedSet
		batches  [][]models.Post
	)

	for i := 0; i < r.opts.SummaryHighlights; i++ {
		posts, next, err := r.selector.SelectForSummary(ctx, 1, selected)
		if err != nil {
			return report, err
		}
		if len(posts) == 0 {
			break
		}
		selected = next
		batches = append(batches, posts)
	}

	rest, _, err := r.selector.SelectForSummary(ctx, r.opts.MaxSummaryPosts, selected)
	if err != nil {
		return report, err
	}
	if len(rest) > 0 {
		batches = append(batches, rest)
	}
	if len(batches) == 0 {
		config.Logger.Infof("[publish] nothing new to summarize")
		return report, nil
	}

	for _, posts := range batches {
		report.Selected += len(posts)
		if err := r.pacer.wait(ctx); err != nil {
			return report, err
		}
		outcome, err := r.actor.PublishSummary(ctx, posts)
		r.pacer.done()
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if outcome == dispatch.OutcomePosted {
			report.Posted++
		} else {
			report.Failed++
		}
		if err != nil {
			config.Logger.Warnf("[publish] summary of %d posts: %v", len(posts), err)
		}
	}
	return report, nil
}

// RunOnce runs learn, reply and publish in that order. A failing stage does
// not prevent the next one unless ctx is done.
func (r *Runner) RunOnce(ctx context.Context) error {
	var errs []error
	if _, err := r.Learn(ctx); err != nil {
		errs = append(errs, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, err := r.Reply(ctx); err != nil {
		errs = append(errs, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, err := r.Publish(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
