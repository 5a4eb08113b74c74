package enrichment

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

const (
	DefaultInsightScore = 50
	MaxTopics           = 3
)

// ParseInsightScore reads the model's rating. Anything that is not a plain
// integer yields DefaultInsightScore; integers are clamped to [0,100].
func ParseInsightScore(s string) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			if strings.HasPrefix(s, "-") {
				return 0
			}
			return 100
		}
		return DefaultInsightScore
	}
	return min(max(n, 0), 100)
}

// ParseTopics keeps at most MaxTopics unique lowercase single-word labels.
func ParseTopics(s string) []string {
	topics := []string{}
	seen := map[string]struct{}{}
	for _, part := range strings.Split(s, ",") {
		t := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'.`))
		if t == "" || strings.IndexFunc(t, unicode.IsSpace) >= 0 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
		if len(topics) == MaxTopics {
			break
		}
	}
	return topics
}

// ParseTokens returns unique uppercase symbols with any leading $ removed.
func ParseTokens(s string) []string {
	tokens := []string{}
	seen := map[string]struct{}{}
	for _, part := range strings.Split(s, ",") {
		t := strings.TrimSpace(part)
		t = strings.ToUpper(strings.TrimSpace(strings.TrimLeft(t, "$")))
		if t == "" || strings.IndexFunc(t, unicode.IsSpace) >= 0 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens
}
