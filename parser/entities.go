package parser

import (
	"regexp"
	"strings"
	"time"
)

var (
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	mentionPattern = regexp.MustCompile(`@(\w+)`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
)

// ParseEntities extracts hashtags, mentions and urls from post text in order of appearance.
// Duplicates are kept; the returned slices are never nil.
func ParseEntities(content string) (hashtags, mentions, urls []string) {
	hashtags = submatches(hashtagPattern, content)
	mentions = submatches(mentionPattern, content)
	urls = urlPattern.FindAllString(content, -1)
	if urls == nil {
		urls = []string{}
	}
	return hashtags, mentions, urls
}

func submatches(re *regexp.Regexp, s string) []string {
	out := []string{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// ParseTimestamp parses the datetime attribute of a post. Empty or malformed
// values fall back to fallback.
func ParseTimestamp(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
