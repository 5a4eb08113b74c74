package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"timeline-agent/db"
	"timeline-agent/models"
)

// ErrNotFound is returned by point lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrStore wraps failures of the underlying storage engine.
var ErrStore = errors.New("record store failure")

// RecordStore is everything the pipeline needs from durable storage.
type RecordStore interface {
	InsertPostIfAbsent(ctx context.Context, p *models.Post) (models.InsertResult, error)
	FindPostByID(ctx context.Context, postID string) (*models.Post, error)
	QueryPosts(ctx context.Context, q models.PostQuery) ([]models.Post, error)
	ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error)

	InsertReply(ctx context.Context, r *models.Reply) error
	HasSuccessfulReply(ctx context.Context, postID string) (bool, error)
	ListReplies(ctx context.Context, limit int) ([]models.Reply, error)

	InsertSummaryPost(ctx context.Context, s *models.SummaryPost) error
	ListSummaryPosts(ctx context.Context, limit int) ([]models.SummaryPost, error)
}

// Store is the MongoDB-backed RecordStore.
type Store struct {
	*PostRepository
	*ReplyRepository
	*SummaryPostRepository
}

func NewStore(d *mongo.Database) *Store {
	replies := NewReplyRepository(d)
	summaries := NewSummaryPostRepository(d)
	return &Store{
		PostRepository:        NewPostRepository(d, replies, summaries),
		ReplyRepository:       replies,
		SummaryPostRepository: summaries,
	}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.PostRepository.col.Database().RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

var _ RecordStore = (*Store)(nil)
var _ RecordStore = (*MemoryStore)(nil)

// collection names are shared with db.EnsureIndexes
var (
	postsCollection        = db.CollectionPosts
	repliesCollection      = db.CollectionReplies
	summaryPostsCollection = db.CollectionSummaryPosts
	aiLogsCollection       = db.CollectionAILogs
)

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
