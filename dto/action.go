package dto

import (
	"time"

	"timeline-agent/models"
)

type ReplyDTO struct {
	ID             string    `json:"id"`
	OriginalPostID string    `json:"original_post_id"`
	Content        string    `json:"content"`
	Status         string    `json:"status"`
	Strategy       string    `json:"strategy,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewReplyDTO(r models.Reply) ReplyDTO {
	return ReplyDTO{
		ID:             r.ID.Hex(),
		OriginalPostID: r.OriginalPostID,
		Content:        r.Content,
		Status:         string(r.Status),
		Strategy:       r.Strategy,
		CreatedAt:      r.CreatedAt,
	}
}

type SummaryPostDTO struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	SourcePostIDs []string  `json:"source_post_ids"`
	Status        string    `json:"status"`
	Strategy      string    `json:"strategy,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewSummaryPostDTO(s models.SummaryPost) SummaryPostDTO {
	return SummaryPostDTO{
		ID:            s.ID.Hex(),
		Content:       s.Content,
		SourcePostIDs: orEmpty(s.SourcePostIDs),
		Status:        string(s.Status),
		Strategy:      s.Strategy,
		CreatedAt:     s.CreatedAt,
	}
}

// ListDTO wraps a bounded list response.
type ListDTO[T any] struct {
	Data  []T `json:"data"`
	Limit int `json:"limit"`
}
