package dispatch

import (
	"strings"
	"unicode/utf8"
)

// MaxPostChars is the platform's length ceiling.
const MaxPostChars = 280

const ellipsis = "..."

var quoteStripper = strings.NewReplacer(
	`"`, "",
	"“", "",
	"”", "",
	"'", "",
	"‘", "",
	"’", "",
)

// StripQuotes removes straight and curly quotation marks.
func StripQuotes(s string) string {
	return quoteStripper.Replace(s)
}

// Truncate cuts text longer than MaxPostChars to 277 characters plus "...".
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxPostChars {
		return s
	}
	keep := MaxPostChars - len(ellipsis)
	runes := []rune(s)
	return string(runes[:keep]) + ellipsis
}

// Sanitize applies quote stripping, trimming and truncation to generated text.
func Sanitize(s string) string {
	return Truncate(strings.TrimSpace(StripQuotes(s)))
}
