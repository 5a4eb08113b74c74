package dto

import (
	"time"

	"timeline-agent/models"
)

// PostDTO exposes a stored post without its embedding.
type PostDTO struct {
	PostID       string    `json:"post_id"`
	Author       string    `json:"author"`
	Content      string    `json:"content"`
	PublishedAt  time.Time `json:"published_at"`
	ObservedAt   time.Time `json:"observed_at"`
	Summary      string    `json:"summary"`
	InsightScore *int      `json:"insight_score"`
	Topics       []string  `json:"topics"`
	Tokens       []string  `json:"tokens"`
	Hashtags     []string  `json:"hashtags"`
	Mentions     []string  `json:"mentions"`
	URLs         []string  `json:"urls"`
}

func NewPostDTO(p models.Post) PostDTO {
	return PostDTO{
		PostID:       p.PostID,
		Author:       p.Author,
		Content:      p.Content,
		PublishedAt:  p.PublishedAt,
		ObservedAt:   p.ObservedAt,
		Summary:      p.SummaryText(),
		InsightScore: p.InsightScore,
		Topics:       orEmpty(p.Topics),
		Tokens:       orEmpty(p.Tokens),
		Hashtags:     orEmpty(p.Hashtags),
		Mentions:     orEmpty(p.Mentions),
		URLs:         orEmpty(p.URLs),
	}
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
