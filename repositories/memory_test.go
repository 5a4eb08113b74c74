package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline-agent/models"
)

func scoredPost(id string, score int, observed time.Time) *models.Post {
	p := &models.Post{PostID: id, Content: "content " + id, ObservedAt: observed}
	p.ApplyEnrichment(models.Enrichment{InsightScore: score})
	return p
}

func TestMemoryStoreFirstInsertWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := scoredPost("t1", 85, time.Now())
	res, err := s.InsertPostIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, models.Inserted, res)

	second := scoredPost("t1", 10, time.Now())
	res, err = s.InsertPostIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.AlreadyPresent, res)

	got, err := s.FindPostByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 85, got.Score())
	assert.Equal(t, 1, s.PostCount())
}

func TestMemoryStoreConcurrentInsertSingleRow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.InsertPostIfAbsent(ctx, scoredPost("race", 60, time.Now()))
			if err == nil && res == models.Inserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, s.PostCount())
}

func TestMemoryStoreFindMissing(t *testing.T) {
	_, err := NewMemoryStore().FindPostByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	for _, p := range []*models.Post{
		scoredPost("fresh-90", 90, now.Add(-time.Hour)),
		scoredPost("fresh-70", 70, now.Add(-2*time.Hour)),
		scoredPost("stale-99", 99, now.Add(-48*time.Hour)),
		scoredPost("low-50", 50, now),
		scoredPost("replied-95", 95, now),
		scoredPost("summarized-80", 80, now),
	} {
		_, err := s.InsertPostIfAbsent(ctx, p)
		require.NoError(t, err)
	}
	require.NoError(t, s.InsertReply(ctx, &models.Reply{OriginalPostID: "replied-95", Status: models.StatusPosted}))
	require.NoError(t, s.InsertReply(ctx, &models.Reply{OriginalPostID: "fresh-70", Status: models.StatusFailed}))
	require.NoError(t, s.InsertSummaryPost(ctx, &models.SummaryPost{SourcePostIDs: []string{"summarized-80"}, Status: models.StatusPosted}))

	minScore := 50
	posts, err := s.QueryPosts(ctx, models.PostQuery{
		ObservedSince:     now.Add(-24 * time.Hour),
		ScoreAbove:        &minScore,
		ExcludeReplied:    true,
		ExcludeSummarized: true,
	})
	require.NoError(t, err)

	var ids []string
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	assert.Equal(t, []string{"fresh-90", "fresh-70"}, ids)
}

func TestMemoryStoreHasSuccessfulReply(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertReply(ctx, &models.Reply{OriginalPostID: "t1", Status: models.StatusFailed}))
	ok, err := s.HasSuccessfulReply(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.InsertReply(ctx, &models.Reply{OriginalPostID: "t1", Status: models.StatusPosted}))
	ok, err = s.HasSuccessfulReply(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertReply(ctx, &models.Reply{OriginalPostID: "a", Content: "first"}))
	require.NoError(t, s.InsertReply(ctx, &models.Reply{OriginalPostID: "b", Content: "second"}))

	replies, err := s.ListReplies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "second", replies[0].Content)
	assert.Equal(t, models.StatusPending, replies[1].Status)
}

func TestMemoryStoreQueryPostsByAuthor(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	for id, author := range map[string]string{
		"label":  "Vitalik (@VitalikButerin)",
		"plain":  "vitalikbuterin",
		"fan":    "@vitalikbuterinfan",
		"random": "bob",
	} {
		p := scoredPost(id, 10, now)
		p.Author = author
		_, err := s.InsertPostIfAbsent(ctx, p)
		require.NoError(t, err)
	}

	posts, err := s.QueryPosts(ctx, models.PostQuery{Authors: []string{"@vitalikbuterin"}})
	require.NoError(t, err)
	var ids []string
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	assert.ElementsMatch(t, []string{"label", "plain"}, ids)

	posts, err = s.QueryPosts(ctx, models.PostQuery{Authors: []string{" "}})
	require.NoError(t, err)
	assert.Empty(t, posts)
}
