package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"timeline-agent/models"
)

type SummaryPostRepository struct {
	col *mongo.Collection
}

func NewSummaryPostRepository(db *mongo.Database) *SummaryPostRepository {
	return &SummaryPostRepository{col: db.Collection(summaryPostsCollection)}
}

func (r *SummaryPostRepository) InsertSummaryPost(ctx context.Context, s *models.SummaryPost) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = models.StatusPending
	}
	if s.SourcePostIDs == nil {
		s.SourcePostIDs = []string{}
	}
	res, err := r.col.InsertOne(ctx, s)
	if err != nil {
		return storeErr("insert summary post", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		s.ID = oid
	}
	return nil
}

// SummarizedPostIDs returns every post id already used as a summary source.
func (r *SummaryPostRepository) SummarizedPostIDs(ctx context.Context) ([]string, error) {
	values, err := r.col.Distinct(ctx, "source_post_ids", bson.M{"status": models.StatusPosted})
	if err != nil {
		return nil, storeErr("distinct summarized ids", err)
	}
	return stringValues(values), nil
}

func (r *SummaryPostRepository) ListSummaryPosts(ctx context.Context, limit int) ([]models.SummaryPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, storeErr("list summary posts", err)
	}
	defer cur.Close(ctx)

	results := []models.SummaryPost{}
	if err := cur.All(ctx, &results); err != nil {
		return nil, storeErr("decode summary posts", err)
	}
	return results, nil
}
