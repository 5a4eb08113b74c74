package services

import (
	"context"

	"timeline-agent/dto"
	"timeline-agent/models"
)

type ActivityReader interface {
	ListReplies(ctx context.Context, limit int) ([]models.Reply, error)
	ListSummaryPosts(ctx context.Context, limit int) ([]models.SummaryPost, error)
}

// ActivityService lists what the agent has posted.
type ActivityService struct {
	repo ActivityReader
}

func NewActivityService(repo ActivityReader) *ActivityService {
	return &ActivityService{repo: repo}
}

func (s *ActivityService) ListReplies(ctx context.Context, limit int) (dto.ListDTO[dto.ReplyDTO], error) {
	limit = clampLimit(limit)
	items, err := s.repo.ListReplies(ctx, limit)
	if err != nil {
		return dto.ListDTO[dto.ReplyDTO]{}, err
	}
	out := make([]dto.ReplyDTO, 0, len(items))
	for _, r := range items {
		out = append(out, dto.NewReplyDTO(r))
	}
	return dto.ListDTO[dto.ReplyDTO]{Data: out, Limit: limit}, nil
}

func (s *ActivityService) ListSummaries(ctx context.Context, limit int) (dto.ListDTO[dto.SummaryPostDTO], error) {
	limit = clampLimit(limit)
	items, err := s.repo.ListSummaryPosts(ctx, limit)
	if err != nil {
		return dto.ListDTO[dto.SummaryPostDTO]{}, err
	}
	out := make([]dto.SummaryPostDTO, 0, len(items))
	for _, sp := range items {
		out = append(out, dto.NewSummaryPostDTO(sp))
	}
	return dto.ListDTO[dto.SummaryPostDTO]{Data: out, Limit: limit}, nil
}
