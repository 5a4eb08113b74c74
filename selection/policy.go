package selection

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"timeline-agent/config"
	"timeline-agent/models"
)

// Policy decides how reply candidates are fetched and ranked.
type Policy interface {
	Name() string
	// Query adjusts the store query before candidates are fetched.
	Query(q *models.PostQuery, maxCount, minScore, pool int)
	// Rank filters and orders the fetched candidates.
	Rank(posts []models.Post, minScore int) []models.Post
}

// ScorePolicy ranks purely by insight score, freshest first on ties.
type ScorePolicy struct{}

func (ScorePolicy) Name() string { return config.SelectionPolicyScore }

func (ScorePolicy) Query(q *models.PostQuery, maxCount, minScore, _ int) {
	q.ScoreAbove = &minScore
	q.Limit = maxCount
}

func (ScorePolicy) Rank(posts []models.Post, minScore int) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.Score() > minScore {
			out = append(out, p)
		}
	}
	models.SortPosts(out, models.OrderByInsight)
	return out
}

// AuthorPriorityPolicy puts allow-listed authors first regardless of score,
// then question-like posts, then everything else. Only the first tier may be
// at or below minScore.
type AuthorPriorityPolicy struct {
	authors          map[string]struct{}
	questionKeywords map[string]struct{}
}

func NewAuthorPriorityPolicy(authors, questionKeywords []string) AuthorPriorityPolicy {
	p := AuthorPriorityPolicy{
		authors:          map[string]struct{}{},
		questionKeywords: map[string]struct{}{},
	}
	for _, a := range authors {
		if h := normalizeHandle(a); h != "" {
			p.authors[h] = struct{}{}
		}
	}
	for _, k := range questionKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			p.questionKeywords[k] = struct{}{}
		}
	}
	return p
}

func (AuthorPriorityPolicy) Name() string { return config.SelectionPolicyAuthorPriority }

func (AuthorPriorityPolicy) Query(q *models.PostQuery, _, _, pool int) {
	q.ScoreAbove = nil
	q.Limit = pool
}

// PriorityAuthors returns the allow-listed handles in sorted order.
func (p AuthorPriorityPolicy) PriorityAuthors() []string {
	out := make([]string, 0, len(p.authors))
	for a := range p.authors {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

const (
	tierPriorityAuthor = iota
	tierQuestion
	tierRest
)

func (p AuthorPriorityPolicy) Rank(posts []models.Post, minScore int) []models.Post {
	type ranked struct {
		post models.Post
		tier int
	}
	var candidates []ranked
	for _, post := range posts {
		tier := p.tier(post)
		if tier != tierPriorityAuthor && post.Score() <= minScore {
			continue
		}
		candidates = append(candidates, ranked{post: post, tier: tier})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].tier != candidates[j].tier {
			return candidates[i].tier < candidates[j].tier
		}
		return models.Less(candidates[i].post, candidates[j].post, models.OrderByInsight)
	})

	out := make([]models.Post, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.post)
	}
	return out
}

func (p AuthorPriorityPolicy) tier(post models.Post) int {
	if p.isPriorityAuthor(post.Author) {
		return tierPriorityAuthor
	}
	if p.isQuestion(post.Content) {
		return tierQuestion
	}
	return tierRest
}

var handlePattern = regexp.MustCompile(`@(\w+)`)

// isPriorityAuthor matches the whole author label or any @handle inside it.
func (p AuthorPriorityPolicy) isPriorityAuthor(author string) bool {
	if len(p.authors) == 0 {
		return false
	}
	if _, ok := p.authors[normalizeHandle(author)]; ok {
		return true
	}
	for _, m := range handlePattern.FindAllStringSubmatch(author, -1) {
		if _, ok := p.authors[strings.ToLower(m[1])]; ok {
			return true
		}
	}
	return false
}

func (p AuthorPriorityPolicy) isQuestion(content string) bool {
	if strings.Contains(content, "?") {
		return true
	}
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	for _, w := range words {
		if _, ok := p.questionKeywords[w]; ok {
			return true
		}
	}
	return false
}

func normalizeHandle(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// PolicyFromConfig builds the configured reply policy.
func PolicyFromConfig(cfg config.SelectionConfig) (Policy, error) {
	switch strings.ToLower(cfg.Policy) {
	case "", config.SelectionPolicyScore:
		return ScorePolicy{}, nil
	case config.SelectionPolicyAuthorPriority:
		return NewAuthorPriorityPolicy(cfg.PriorityAuthors, cfg.QuestionKeywords), nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q", cfg.Policy)
	}
}
