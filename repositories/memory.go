package repositories

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"timeline-agent/models"
)

// MemoryStore is an in-process RecordStore used by tests and dry runs.
// It follows the same filtering and ordering rules as Store.
type MemoryStore struct {
	mu        sync.Mutex
	posts     map[string]models.Post
	replies   []models.Reply
	summaries []models.SummaryPost
	aiLogs    []models.AILog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: map[string]models.Post{}}
}

func (m *MemoryStore) InsertPostIfAbsent(ctx context.Context, p *models.Post) (models.InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[p.PostID]; ok {
		return models.AlreadyPresent, nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.posts[p.PostID] = clonePost(*p)
	return models.Inserted, nil
}

func (m *MemoryStore) FindPostByID(ctx context.Context, postID string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	out := clonePost(p)
	return &out, nil
}

func (m *MemoryStore) QueryPosts(ctx context.Context, q models.PostQuery) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	exclude := make(map[string]struct{}, len(q.ExcludePostIDs))
	for _, id := range q.ExcludePostIDs {
		exclude[id] = struct{}{}
	}
	if q.ExcludeReplied {
		for _, id := range m.repliedIDsLocked() {
			exclude[id] = struct{}{}
		}
	}
	if q.ExcludeSummarized {
		for _, id := range m.summarizedIDsLocked() {
			exclude[id] = struct{}{}
		}
	}

	var authors *regexp.Regexp
	if len(q.Authors) > 0 {
		if authors = models.AuthorMatcher(q.Authors); authors == nil {
			return []models.Post{}, nil
		}
	}

	results := []models.Post{}
	for _, p := range m.posts {
		if _, skip := exclude[p.PostID]; skip {
			continue
		}
		if authors != nil && !authors.MatchString(p.Author) {
			continue
		}
		if !q.ObservedSince.IsZero() && p.ObservedAt.Before(q.ObservedSince) {
			continue
		}
		if q.ScoreAbove != nil && (p.InsightScore == nil || *p.InsightScore <= *q.ScoreAbove) {
			continue
		}
		results = append(results, clonePost(p))
	}
	// map order is random; fix it before the stable sort
	sort.Slice(results, func(i, j int) bool { return results[i].PostID < results[j].PostID })
	models.SortPosts(results, q.OrderBy)
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func (m *MemoryStore) ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return m.QueryPosts(ctx, models.PostQuery{OrderBy: models.OrderByRecency, Limit: limit})
}

func (m *MemoryStore) InsertReply(ctx context.Context, r *models.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	m.replies = append(m.replies, *r)
	return nil
}

func (m *MemoryStore) HasSuccessfulReply(ctx context.Context, postID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.replies {
		if r.OriginalPostID == postID && r.Status == models.StatusPosted {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ListReplies(ctx context.Context, limit int) ([]models.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Reply{}
	for i := len(m.replies) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.replies[i])
	}
	return out, nil
}

func (m *MemoryStore) InsertSummaryPost(ctx context.Context, s *models.SummaryPost) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = models.StatusPending
	}
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	stored := *s
	stored.SourcePostIDs = append([]string{}, s.SourcePostIDs...)
	m.summaries = append(m.summaries, stored)
	return nil
}

func (m *MemoryStore) ListSummaryPosts(ctx context.Context, limit int) ([]models.SummaryPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.SummaryPost{}
	for i := len(m.summaries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.summaries[i])
	}
	return out, nil
}

func (m *MemoryStore) RepliedPostIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repliedIDsLocked(), nil
}

func (m *MemoryStore) SummarizedPostIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summarizedIDsLocked(), nil
}

// Insert records an AI call log.
func (m *MemoryStore) Insert(ctx context.Context, log models.AILog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aiLogs = append(m.aiLogs, log)
	return nil
}

// AILogs returns a copy of the recorded AI call logs.
func (m *MemoryStore) AILogs() []models.AILog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AILog{}, m.aiLogs...)
}

// PostCount returns the number of stored posts.
func (m *MemoryStore) PostCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) repliedIDsLocked() []string {
	ids := []string{}
	for _, r := range m.replies {
		if r.Status == models.StatusPosted {
			ids = append(ids, r.OriginalPostID)
		}
	}
	return ids
}

func (m *MemoryStore) summarizedIDsLocked() []string {
	ids := []string{}
	for _, s := range m.summaries {
		if s.Status == models.StatusPosted {
			ids = append(ids, s.SourcePostIDs...)
		}
	}
	return ids
}

func clonePost(p models.Post) models.Post {
	out := p
	out.Hashtags = cloneStrings(p.Hashtags)
	out.Mentions = cloneStrings(p.Mentions)
	out.URLs = cloneStrings(p.URLs)
	out.MediaURLs = cloneStrings(p.MediaURLs)
	out.Topics = cloneStrings(p.Topics)
	out.Tokens = cloneStrings(p.Tokens)
	if p.Embedding != nil {
		out.Embedding = append(make([]float32, 0, len(p.Embedding)), p.Embedding...)
	}
	if p.Summary != nil {
		s := *p.Summary
		out.Summary = &s
	}
	if p.InsightScore != nil {
		v := *p.InsightScore
		out.InsightScore = &v
	}
	return out
}

func cloneStrings(v []string) []string {
	if v == nil {
		return nil
	}
	return append(make([]string, 0, len(v)), v...)
}
