package models

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// InsertResult reports what an idempotent insert did.
type InsertResult int

const (
	Inserted InsertResult = iota + 1
	AlreadyPresent
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// PostOrder names a sort order for post queries.
type PostOrder int

const (
	// OrderByInsight sorts by insight score desc, then observed_at desc. Unscored posts go last.
	OrderByInsight PostOrder = iota
	// OrderByRecency sorts by observed_at desc.
	OrderByRecency
)

// PostQuery is the filter accepted by the record store.
type PostQuery struct {
	ObservedSince time.Time
	// ScoreAbove keeps posts whose insight score is strictly greater than the value.
	ScoreAbove *int
	// ExcludeReplied drops posts that already have a reply with status posted.
	ExcludeReplied bool
	// ExcludeSummarized drops posts listed in any summary post's source_post_ids.
	ExcludeSummarized bool
	ExcludePostIDs    []string
	// Authors keeps posts whose author label is one of the handles or
	// mentions @handle. Case is ignored.
	Authors []string
	OrderBy PostOrder
	Limit   int
}

// AuthorPattern returns the regular expression used for PostQuery.Authors.
// It is valid for both Go and MongoDB and must be matched case-insensitively.
// Empty when no usable handle is given.
func AuthorPattern(handles []string) string {
	seen := map[string]struct{}{}
	quoted := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		quoted = append(quoted, regexp.QuoteMeta(h))
	}
	if len(quoted) == 0 {
		return ""
	}
	alt := "(?:" + strings.Join(quoted, "|") + ")"
	return `^\s*@?` + alt + `\s*$|@` + alt + `\b`
}

// AuthorMatcher compiles AuthorPattern for in-process filtering. It returns
// nil when handles holds nothing usable.
func AuthorMatcher(handles []string) *regexp.Regexp {
	pattern := AuthorPattern(handles)
	if pattern == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + pattern)
}

// SortPosts orders posts in place according to order.
func SortPosts(posts []Post, order PostOrder) {
	sort.SliceStable(posts, func(i, j int) bool {
		return Less(posts[i], posts[j], order)
	})
}

// Less reports whether a ranks before b under order.
func Less(a, b Post, order PostOrder) bool {
	if order == OrderByInsight {
		if sa, sb := a.Score(), b.Score(); sa != sb {
			return sa > sb
		}
	}
	return a.ObservedAt.After(b.ObservedAt)
}
