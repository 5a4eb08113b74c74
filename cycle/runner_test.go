package cycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline-agent/config"
	"timeline-agent/dispatch"
	"timeline-agent/enrichment"
	"timeline-agent/ingest"
	"timeline-agent/models"
	"timeline-agent/pagesource"
	"timeline-agent/repositories"
	"timeline-agent/selection"
	"timeline-agent/textservice/texttest"
)

type fakeTimeline struct {
	mu      sync.Mutex
	posts   []models.RawPost
	failing map[string]bool
	replies []string
	posted  []string
}

func (f *fakeTimeline) FetchTimelinePosts(_ context.Context, maxCount int) ([]models.RawPost, error) {
	if len(f.posts) > maxCount {
		return f.posts[:maxCount], nil
	}
	return f.posts, nil
}

func (f *fakeTimeline) PostReply(_ context.Context, postID, text string) (pagesource.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[postID] {
		return pagesource.Result{}, errors.New("reply button not found")
	}
	f.replies = append(f.replies, postID)
	return pagesource.Result{Step: "submit", Strategy: "click"}, nil
}

func (f *fakeTimeline) PostNewContent(_ context.Context, text string) (pagesource.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, text)
	return pagesource.Result{Step: "submit", Strategy: "click"}, nil
}

type harness struct {
	runner   *Runner
	timeline *fakeTimeline
	svc      *texttest.Fake
	store    *repositories.MemoryStore
}

func newHarness(t *testing.T, opts Options, raws ...models.RawPost) *harness {
	t.Helper()
	svc := texttest.New()
	svc.Responses[enrichment.DerivationSummary] = "a post"
	svc.Responses[enrichment.DerivationScore] = "80"
	svc.Responses[enrichment.DerivationTopics] = "eth"
	svc.Responses[dispatch.DerivationReply] = "nice one"
	svc.Responses[dispatch.DerivationSummary] = "markets look busy"

	store := repositories.NewMemoryStore()
	timeline := &fakeTimeline{posts: raws, failing: map[string]bool{}}
	controller := ingest.NewController(store, enrichment.NewEngine(svc, 2, nil), nil, nil)
	selector := selection.NewEngine(store, selection.ScorePolicy{}, 50, nil)
	dispatcher := dispatch.NewDispatcher(svc, timeline, store, nil, config.DispatchConfig{MaxAttempts: 2}, nil)

	return &harness{
		runner:   NewRunner(timeline, controller, selector, dispatcher, opts),
		timeline: timeline,
		svc:      svc,
		store:    store,
	}
}

func defaultOptions() Options {
	return Options{
		MaxPosts:        10,
		MaxReplies:      5,
		MinScore:        50,
		Window:          24 * time.Hour,
		MaxSummaryPosts: 5,
	}
}

func raw(id string) models.RawPost {
	return models.RawPost{PostID: id, Content: "post " + id, Author: "alice"}
}

func TestLearnIngestsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultOptions(), raw("1"), raw("2"), models.RawPost{PostID: "3"})

	res, err := h.runner.Learn(ctx)
	require.NoError(t, err)
	assert.Equal(t, ingest.BatchResult{Enriched: 2, Invalid: 1}, res)
	assert.Equal(t, 2, h.store.PostCount())

	calls := h.svc.TotalCalls()
	res, err = h.runner.Learn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, calls, h.svc.TotalCalls())
}

func TestReplyContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultOptions(), raw("1"), raw("2"), raw("3"))
	h.timeline.failing["2"] = true
	_, err := h.runner.Learn(ctx)
	require.NoError(t, err)

	report, err := h.runner.Reply(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionReport{Selected: 3, Posted: 2, Failed: 1}, report)
	assert.ElementsMatch(t, []string{"1", "3"}, h.timeline.replies)

	// 실패한 포스트만 다시 선택된다.
	report, err = h.runner.Reply(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionReport{Selected: 1, Posted: 0, Failed: 1}, report)
}

func TestPublishHighlightsThenRollup(t *testing.T) {
	ctx := context.Background()
	opts := defaultOptions()
	opts.SummaryHighlights = 1
	h := newHarness(t, opts, raw("1"), raw("2"), raw("3"))
	_, err := h.runner.Learn(ctx)
	require.NoError(t, err)

	report, err := h.runner.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionReport{Selected: 3, Posted: 2}, report)
	assert.Len(t, h.timeline.posted, 2)

	summaries, err := h.store.ListSummaryPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	seen := map[string]int{}
	for _, s := range summaries {
		for _, id := range s.SourcePostIDs {
			seen[id]++
		}
	}
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1}, seen)

	report, err = h.runner.Publish(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Selected)
	assert.Len(t, h.timeline.posted, 2)
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHarness(t, defaultOptions(), raw("1"))

	err := h.runner.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.store.PostCount())
	assert.Empty(t, h.timeline.replies)
}

func TestRunOnceFullCycle(t *testing.T) {
	ctx := context.Background()
	var raws []models.RawPost
	for i := 0; i < 4; i++ {
		raws = append(raws, raw(fmt.Sprint(i)))
	}
	h := newHarness(t, defaultOptions(), raws...)

	require.NoError(t, h.runner.RunOnce(ctx))
	assert.Len(t, h.timeline.replies, 4)
	assert.Len(t, h.timeline.posted, 1)

	ids, err := h.store.SummarizedPostIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

func TestPacerSpacesActions(t *testing.T) {
	current := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newPacer(time.Second)
	p.now = func() time.Time { return current }

	require.NoError(t, p.wait(context.Background()))
	p.done()

	// 지연 시간이 이미 지났으면 기다리지 않는다.
	current = current.Add(2 * time.Second)
	require.NoError(t, p.wait(context.Background()))
	p.done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p.delay = time.Hour
	assert.ErrorIs(t, p.wait(ctx), context.DeadlineExceeded)
}

type fixedSelector struct {
	posts []models.Post
}

func (s fixedSelector) SelectForReply(context.Context, int, int, time.Duration) ([]models.Post, error) {
	return s.posts, nil
}

func (s fixedSelector) SelectForSummary(_ context.Context, _ int, selected selection.SelectedSet) ([]models.Post, selection.SelectedSet, error) {
	return s.posts, selected, nil
}

type span struct {
	start, end time.Time
}

// slowActor takes longer than the configured action delay on every call.
type slowActor struct {
	mu    sync.Mutex
	took  time.Duration
	spans []span
}

func (a *slowActor) act() {
	start := time.Now()
	time.Sleep(a.took)
	a.mu.Lock()
	a.spans = append(a.spans, span{start: start, end: time.Now()})
	a.mu.Unlock()
}

func (a *slowActor) Reply(context.Context, models.Post) (dispatch.Outcome, error) {
	a.act()
	return dispatch.OutcomePosted, nil
}

func (a *slowActor) PublishSummary(context.Context, []models.Post) (dispatch.Outcome, error) {
	a.act()
	return dispatch.OutcomePosted, nil
}

func TestActionDelayCountsFromEndOfPreviousAction(t *testing.T) {
	ctx := context.Background()
	delay := 40 * time.Millisecond
	actor := &slowActor{took: 60 * time.Millisecond}
	selector := fixedSelector{posts: []models.Post{{PostID: "a"}, {PostID: "b"}}}
	opts := defaultOptions()
	opts.ActionDelay = delay
	r := NewRunner(&fakeTimeline{}, nil, selector, actor, opts)

	report, err := r.Reply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Posted)

	// reply 다음 publish 도 같은 간격을 지킨다.
	report, err = r.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Posted)

	require.Len(t, actor.spans, 3)
	for i := 1; i < len(actor.spans); i++ {
		gap := actor.spans[i].start.Sub(actor.spans[i-1].end)
		assert.GreaterOrEqual(t, gap, delay, "gap before action %d", i)
	}
}
