package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestApplyEnrichmentOnlyOnce(t *testing.T) {
	p := Post{PostID: "t1"}
	p.ApplyEnrichment(Enrichment{Summary: "first", InsightScore: 80, Topics: []string{"crypto"}})
	p.ApplyEnrichment(Enrichment{Summary: "second", InsightScore: 10})

	require.True(t, p.Enriched)
	assert.Equal(t, "first", p.SummaryText())
	assert.Equal(t, 80, p.Score())
	assert.Equal(t, []string{"crypto"}, p.Topics)
	assert.NotNil(t, p.Tokens)
	assert.NotNil(t, p.Embedding)
}

func TestUnenrichedPostHasNoScore(t *testing.T) {
	p := Post{PostID: "t1"}
	assert.Equal(t, -1, p.Score())
	assert.Equal(t, "", p.SummaryText())
}

func TestSortPostsByInsightThenRecency(t *testing.T) {
	now := time.Now()
	score := func(v int) *int { return &v }
	posts := []Post{
		{PostID: "old-80", InsightScore: score(80), ObservedAt: now.Add(-2 * time.Hour)},
		{PostID: "unscored", ObservedAt: now},
		{PostID: "new-80", InsightScore: score(80), ObservedAt: now.Add(-time.Hour)},
		{PostID: "top", InsightScore: score(95), ObservedAt: now.Add(-5 * time.Hour)},
	}
	SortPosts(posts, OrderByInsight)

	var ids []string
	for _, p := range posts {
		ids = append(ids, p.PostID)
	}
	assert.Equal(t, []string{"top", "new-80", "old-80", "unscored"}, ids)

	SortPosts(posts, OrderByRecency)
	assert.Equal(t, "unscored", posts[0].PostID)
}

func TestPostListFieldsKeepOrderThroughBSON(t *testing.T) {
	p := Post{
		PostID:    "t1",
		Hashtags:  []string{"zeta", "alpha", "zeta"},
		Mentions:  []string{"bob", "alice"},
		URLs:      []string{"https://b.example", "https://a.example"},
		MediaURLs: []string{"https://pbs.example/media/2", "https://pbs.example/media/1"},
	}
	p.ApplyEnrichment(Enrichment{Topics: []string{"defi", "ai"}, Tokens: []string{"SOL", "BTC"}})

	raw, err := bson.Marshal(p)
	require.NoError(t, err)
	var out Post
	require.NoError(t, bson.Unmarshal(raw, &out))

	assert.Equal(t, p.Hashtags, out.Hashtags)
	assert.Equal(t, p.Mentions, out.Mentions)
	assert.Equal(t, p.URLs, out.URLs)
	assert.Equal(t, p.MediaURLs, out.MediaURLs)
	assert.Equal(t, p.Topics, out.Topics)
	assert.Equal(t, p.Tokens, out.Tokens)
}

func TestEnrichedEmptyListsSurviveBSON(t *testing.T) {
	p := Post{PostID: "t1"}
	p.ApplyEnrichment(Enrichment{Summary: "nothing to see", InsightScore: 5})

	raw, err := bson.Marshal(p)
	require.NoError(t, err)
	var out Post
	require.NoError(t, bson.Unmarshal(raw, &out))

	require.NotNil(t, out.Topics)
	require.NotNil(t, out.Tokens)
	assert.Empty(t, out.Topics)
	assert.Empty(t, out.Tokens)

	// 아직 분석되지 않은 글은 nil 로 남는다.
	raw, err = bson.Marshal(Post{PostID: "t2"})
	require.NoError(t, err)
	var fresh Post
	require.NoError(t, bson.Unmarshal(raw, &fresh))
	assert.Nil(t, fresh.Topics)
	assert.Nil(t, fresh.Tokens)
}

func TestAuthorMatcher(t *testing.T) {
	m := AuthorMatcher([]string{"@VitalikButerin", " cz_binance ", ""})
	require.NotNil(t, m)

	assert.True(t, m.MatchString("vitalikbuterin"))
	assert.True(t, m.MatchString("@CZ_Binance"))
	assert.True(t, m.MatchString("Vitalik (@VitalikButerin)"))
	assert.False(t, m.MatchString("Vitalik Fan @vitalikbuterinfan"))
	assert.False(t, m.MatchString("not vitalikbuterin"))

	assert.Nil(t, AuthorMatcher([]string{" ", "@"}))
	assert.Equal(t, "", AuthorPattern(nil))
}
