// Package news holds the headline helpers shared by the dashboard surfaces:
// HTML cleanup of feed titles and sentiment classification.
package news

import (
	"html"
	"regexp"
	"strings"
)

// Sentiment is the display class of a headline score.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// Classification thresholds on the [-1, 1] score; both bounds are inclusive.
const (
	PositiveThreshold = 0.15
	NegativeThreshold = -0.15
)

// Classify maps a sentiment score to its display class.
func Classify(score float64) Sentiment {
	switch {
	case score >= PositiveThreshold:
		return Positive
	case score <= NegativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// --- HTML helpers ---

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags, unescapes entities and normalizes whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
