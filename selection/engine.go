package selection

import (
	"context"
	"time"

	"timeline-agent/metrics"
	"timeline-agent/models"
)

type Store interface {
	QueryPosts(ctx context.Context, q models.PostQuery) ([]models.Post, error)
}

// authorPolicy is a Policy whose allow-listed authors must be considered
// even when their posts fall outside the score-ordered candidate pool.
type authorPolicy interface {
	PriorityAuthors() []string
}

// Engine picks bounded, ordered subsets of stored posts to act on.
type Engine struct {
	store         Store
	policy        Policy
	candidatePool int
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewEngine(store Store, policy Policy, candidatePool int, m *metrics.Metrics) *Engine {
	if policy == nil {
		policy = ScorePolicy{}
	}
	if candidatePool <= 0 {
		candidatePool = 200
	}
	return &Engine{
		store:         store,
		policy:        policy,
		candidatePool: candidatePool,
		metrics:       m,
		now:           time.Now,
	}
}

// SelectForReply returns at most maxCount posts observed within window that
// have no posted reply, ranked by the active policy. window <= 0 means no cutoff.
func (e *Engine) SelectForReply(ctx context.Context, maxCount, minScore int, window time.Duration) ([]models.Post, error) {
	if maxCount <= 0 {
		return []models.Post{}, nil
	}

	q := models.PostQuery{
		ExcludeReplied: true,
		OrderBy:        models.OrderByInsight,
	}
	if window > 0 {
		q.ObservedSince = e.now().Add(-window)
	}
	pool := max(e.candidatePool, maxCount)
	e.policy.Query(&q, maxCount, minScore, pool)

	posts, err := e.store.QueryPosts(ctx, q)
	if err != nil {
		return nil, err
	}
	if ap, ok := e.policy.(authorPolicy); ok {
		if authors := ap.PriorityAuthors(); len(authors) > 0 {
			aq := q
			aq.ScoreAbove = nil
			aq.Authors = authors
			aq.Limit = pool
			priority, err := e.store.QueryPosts(ctx, aq)
			if err != nil {
				return nil, err
			}
			posts = mergePosts(posts, priority)
		}
	}
	posts = e.policy.Rank(posts, minScore)
	if len(posts) > maxCount {
		posts = posts[:maxCount]
	}
	e.metrics.Selected("reply", len(posts))
	return posts, nil
}

// mergePosts appends the posts of extra not already in posts.
func mergePosts(posts, extra []models.Post) []models.Post {
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		seen[p.PostID] = struct{}{}
	}
	for _, p := range extra {
		if _, ok := seen[p.PostID]; ok {
			continue
		}
		seen[p.PostID] = struct{}{}
		posts = append(posts, p)
	}
	return posts
}

// SelectedSet holds the post ids already picked during one summary run.
// It is a value: With returns a new set and never mutates the receiver.
type SelectedSet map[string]struct{}

func (s SelectedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s SelectedSet) With(ids ...string) SelectedSet {
	out := make(SelectedSet, len(s)+len(ids))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func (s SelectedSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// SelectForSummary returns at most maxCount scored posts that were never used
// in a posted summary and are not in selected. The returned set includes the
// new picks.
func (e *Engine) SelectForSummary(ctx context.Context, maxCount int, selected SelectedSet) ([]models.Post, SelectedSet, error) {
	if maxCount <= 0 {
		return []models.Post{}, selected.With(), nil
	}

	zero := 0
	posts, err := e.store.QueryPosts(ctx, models.PostQuery{
		ScoreAbove:        &zero,
		ExcludeSummarized: true,
		ExcludePostIDs:    selected.IDs(),
		OrderBy:           models.OrderByInsight,
		Limit:             maxCount,
	})
	if err != nil {
		return nil, selected, err
	}

	// 저장소가 제외 목록을 무시하더라도 같은 실행에서 중복 선택은 없어야 한다.
	out := make([]models.Post, 0, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		if selected.Has(p.PostID) || p.Score() <= 0 {
			continue
		}
		out = append(out, p)
		ids = append(ids, p.PostID)
	}
	if len(out) > maxCount {
		out = out[:maxCount]
		ids = ids[:maxCount]
	}
	e.metrics.Selected("summary", len(out))
	return out, selected.With(ids...), nil
}
