package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RawPost is a timeline entry as extracted by the page source, before any enrichment.
type RawPost struct {
	PostID    string   `json:"post_id"`
	Content   string   `json:"content"`
	Author    string   `json:"author"`
	Timestamp string   `json:"timestamp"`
	Hashtags  []string `json:"hashtags"`
	Mentions  []string `json:"mentions"`
	URLs      []string `json:"urls"`
	MediaURLs []string `json:"media_urls"`
}

// Enrichment holds the annotations derived from a post's text.
type Enrichment struct {
	Summary      string    `bson:"summary" json:"summary"`
	Embedding    []float32 `bson:"embedding" json:"embedding"`
	InsightScore int       `bson:"insight_score" json:"insight_score"`
	Topics       []string  `bson:"topics" json:"topics"`
	Tokens       []string  `bson:"tokens" json:"tokens"`
}

// Post represents a scraped timeline post.
// Collection: posts
//
// Enrichment fields are nil until Enriched is set. post_id is unique; a second
// insert with the same post_id is ignored, never merged.
type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PostID      string             `bson:"post_id" json:"post_id"`
	Content     string             `bson:"content" json:"content"`
	Author      string             `bson:"author" json:"author"`
	PublishedAt time.Time          `bson:"published_at" json:"published_at"`
	ObservedAt  time.Time          `bson:"observed_at" json:"observed_at"`
	Hashtags    []string           `bson:"hashtags" json:"hashtags"`
	Mentions    []string           `bson:"mentions" json:"mentions"`
	URLs        []string           `bson:"urls" json:"urls"`
	MediaURLs   []string           `bson:"media_urls" json:"media_urls"`

	Enriched     bool      `bson:"enriched" json:"enriched"`
	Summary      *string   `bson:"summary,omitempty" json:"summary,omitempty"`
	Embedding    []float32 `bson:"embedding,omitempty" json:"-"`
	InsightScore *int      `bson:"insight_score,omitempty" json:"insight_score,omitempty"`
	Topics       []string  `bson:"topics" json:"topics"`
	Tokens       []string  `bson:"tokens" json:"tokens"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ApplyEnrichment fills the nullable fields once. Already-enriched posts are left untouched.
func (p *Post) ApplyEnrichment(e Enrichment) {
	if p.Enriched {
		return
	}
	summary := e.Summary
	score := e.InsightScore
	p.Summary = &summary
	p.InsightScore = &score
	p.Embedding = nonNilFloats(e.Embedding)
	p.Topics = nonNilStrings(e.Topics)
	p.Tokens = nonNilStrings(e.Tokens)
	p.Enriched = true
}

// Score returns the insight score, or -1 when the post is not scored yet.
func (p Post) Score() int {
	if p.InsightScore == nil {
		return -1
	}
	return *p.InsightScore
}

// SummaryText returns the summary or an empty string.
func (p Post) SummaryText() string {
	if p.Summary == nil {
		return ""
	}
	return *p.Summary
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilFloats(v []float32) []float32 {
	if v == nil {
		return []float32{}
	}
	return v
}
