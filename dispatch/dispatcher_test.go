package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline-agent/config"
	"timeline-agent/eventbus"
	"timeline-agent/events"
	"timeline-agent/models"
	"timeline-agent/pagesource"
	"timeline-agent/repositories"
	"timeline-agent/textservice/texttest"
)

var errBrowser = errors.New("submit button not found")

type fakePoster struct {
	mu       sync.Mutex
	failures int
	calls    int
	texts    []string
	cancel   context.CancelFunc
	// unverified makes every attempt press the button without confirmation.
	unverified bool
}

func (p *fakePoster) attempt(text string) (pagesource.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.texts = append(p.texts, text)
	if p.cancel != nil {
		p.cancel()
		return pagesource.Result{}, context.Canceled
	}
	if p.unverified {
		return pagesource.Result{Step: "submit_button"}, fmt.Errorf("%w: verify: %w", pagesource.ErrUnverified, pagesource.ErrStrategiesExhausted)
	}
	if p.calls <= p.failures {
		return pagesource.Result{}, errBrowser
	}
	return pagesource.Result{Step: "submit", Strategy: "click", Attempts: 1}, nil
}

func (p *fakePoster) PostReply(_ context.Context, _ string, text string) (pagesource.Result, error) {
	return p.attempt(text)
}

func (p *fakePoster) PostNewContent(_ context.Context, text string) (pagesource.Result, error) {
	return p.attempt(text)
}

func testConfig() config.DispatchConfig {
	return config.DispatchConfig{MaxAttempts: 3, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func setup(poster *fakePoster) (*Dispatcher, *texttest.Fake, *repositories.MemoryStore, *eventbus.MemoryBus) {
	svc := texttest.New()
	svc.Responses[DerivationReply] = `"gm fren"`
	svc.Responses[DerivationSummary] = "everyone is rotating into l2s"
	store := repositories.NewMemoryStore()
	bus := eventbus.NewMemoryBus()
	emitter := events.NewEmitter(bus, eventbus.TopicAgentEvents)
	return NewDispatcher(svc, poster, store, emitter, testConfig(), nil), svc, store, bus
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("a", 280)
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("b", 300)
	got := Truncate(long)
	assert.Equal(t, 280, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("b", 277), strings.TrimSuffix(got, "..."))

	multi := strings.Repeat("가", 281)
	got = Truncate(multi)
	assert.Equal(t, 280, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "its a good day", Sanitize(` “it’s a "good" day” `))
	assert.Equal(t, "", Sanitize(`"  "`))
}

func TestReplyPostsAndRecords(t *testing.T) {
	ctx := context.Background()
	poster := &fakePoster{}
	d, svc, store, bus := setup(poster)

	outcome, err := d.Reply(ctx, models.Post{PostID: "t1", Content: "gm"})
	require.NoError(t, err)
	assert.Equal(t, OutcomePosted, outcome)
	assert.Equal(t, []string{"gm fren"}, poster.texts)
	assert.Equal(t, 1, svc.Calls(DerivationReply))

	ok, err := store.HasSuccessfulReply(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	replies, err := store.ListReplies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "click", replies[0].Strategy)
	assert.Len(t, bus.Events(eventbus.TopicAgentEvents.Base()), 1)
}

func TestReplyRetriesPostingThenSucceeds(t *testing.T) {
	ctx := context.Background()
	poster := &fakePoster{failures: 2}
	d, svc, store, _ := setup(poster)

	outcome, err := d.Reply(ctx, models.Post{PostID: "t1", Content: "gm"})
	require.NoError(t, err)
	assert.Equal(t, OutcomePosted, outcome)
	assert.Equal(t, 3, poster.calls)
	assert.Equal(t, 1, svc.Calls(DerivationReply))

	ok, err := store.HasSuccessfulReply(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReplyGivesUpAfterThreeAttempts(t *testing.T) {
	ctx := context.Background()
	poster := &fakePoster{failures: 10}
	d, svc, store, bus := setup(poster)

	outcome, err := d.Reply(ctx, models.Post{PostID: "t1", Content: "gm"})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrPostingFailed)
	assert.Equal(t, 3, poster.calls)
	assert.Equal(t, 1, svc.Calls(DerivationReply))

	replies, err := store.ListReplies(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.Empty(t, bus.Events(eventbus.TopicAgentEvents.Base()))
}

func TestReplyGenerationFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()
	poster := &fakePoster{}
	d, svc, store, _ := setup(poster)
	svc.Failures[DerivationReply] = true

	outcome, err := d.Reply(ctx, models.Post{PostID: "t1", Content: "gm"})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, 1, svc.Calls(DerivationReply))
	assert.Zero(t, poster.calls)

	replies, err := store.ListReplies(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestReplyEmptyGenerationFails(t *testing.T) {
	poster := &fakePoster{}
	d, svc, _, _ := setup(poster)
	svc.Responses[DerivationReply] = `""`

	outcome, err := d.Reply(context.Background(), models.Post{PostID: "t1", Content: "gm"})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Zero(t, poster.calls)
}

func TestReplyCancelledDuringPostIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poster := &fakePoster{cancel: cancel}
	d, _, store, _ := setup(poster)

	outcome, err := d.Reply(ctx, models.Post{PostID: "t1", Content: "gm"})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, poster.calls)

	replies, err := store.ListReplies(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestReplyUnverifiedPostIsNotRetried(t *testing.T) {
	ctx := context.Background()
	poster := &fakePoster{unverified: true}
	d, _, store, bus := setup(poster)

	outcome, err := d.Reply(ctx, models.Post{PostID: "t1", Content: "gm"})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrPostingFailed)
	assert.ErrorIs(t, err, pagesource.ErrUnverified)
	assert.Equal(t, 1, poster.calls)

	replies, err := store.ListReplies(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.Empty(t, bus.Events(eventbus.TopicAgentEvents.Base()))
}

func TestPublishSummaryRecordsSources(t *testing.T) {
	ctx := context.Background()
	poster := &fakePoster{failures: 1}
	d, svc, store, bus := setup(poster)

	posts := []models.Post{
		{PostID: "a", Content: "eth fees dropping", Topics: []string{"eth"}},
		{PostID: "b", Content: "sol volume up", Topics: []string{"sol"}},
	}
	outcome, err := d.PublishSummary(ctx, posts)
	require.NoError(t, err)
	assert.Equal(t, OutcomePosted, outcome)
	assert.Equal(t, 2, poster.calls)
	assert.Equal(t, 1, svc.Calls(DerivationSummary))

	prompt := svc.Requests()[0].User
	assert.Contains(t, prompt, "Post: eth fees dropping")
	assert.Contains(t, prompt, "Topics: sol")

	ids, err := store.SummarizedPostIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	assert.Len(t, bus.Events(eventbus.TopicAgentEvents.Base()), 1)
}

func TestPublishSummaryWithoutSources(t *testing.T) {
	poster := &fakePoster{}
	d, svc, _, _ := setup(poster)

	outcome, err := d.PublishSummary(context.Background(), nil)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrNoSources)
	assert.Zero(t, svc.TotalCalls())
}

func TestPublishSummaryFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	poster := &fakePoster{failures: 3}
	d, _, store, _ := setup(poster)

	outcome, err := d.PublishSummary(ctx, []models.Post{{PostID: "a", Content: "x"}})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrPostingFailed)

	ids, err := store.SummarizedPostIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
