package services

import (
	"context"

	"timeline-agent/dto"
	"timeline-agent/models"
)

type PostReader interface {
	ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error)
	FindPostByID(ctx context.Context, postID string) (*models.Post, error)
}

// PostService maps stored posts to DTOs.
type PostService struct {
	repo PostReader
}

func NewPostService(repo PostReader) *PostService {
	return &PostService{repo: repo}
}

// GetByID loads a post by its platform id.
func (s *PostService) GetByID(ctx context.Context, postID string) (*dto.PostDTO, error) {
	p, err := s.repo.FindPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	d := dto.NewPostDTO(*p)
	return &d, nil
}

func (s *PostService) List(ctx context.Context, limit int) (dto.ListDTO[dto.PostDTO], error) {
	limit = clampLimit(limit)
	items, err := s.repo.ListRecentPosts(ctx, limit)
	if err != nil {
		return dto.ListDTO[dto.PostDTO]{}, err
	}
	out := make([]dto.PostDTO, 0, len(items))
	for _, p := range items {
		out = append(out, dto.NewPostDTO(p))
	}
	return dto.ListDTO[dto.PostDTO]{Data: out, Limit: limit}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
