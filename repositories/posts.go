package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"timeline-agent/models"
)

type PostRepository struct {
	col       *mongo.Collection
	replies   *ReplyRepository
	summaries *SummaryPostRepository
}

func NewPostRepository(db *mongo.Database, replies *ReplyRepository, summaries *SummaryPostRepository) *PostRepository {
	return &PostRepository{
		col:       db.Collection(postsCollection),
		replies:   replies,
		summaries: summaries,
	}
}

// InsertPostIfAbsent inserts p unless a post with the same post_id exists.
// The unique index on post_id decides the winner of concurrent inserts; the loser
// gets AlreadyPresent and the stored document is left untouched.
func (r *PostRepository) InsertPostIfAbsent(ctx context.Context, p *models.Post) (models.InsertResult, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.AlreadyPresent, nil
		}
		return 0, storeErr("insert post", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return models.Inserted, nil
}

// FindPostByID returns a post by its platform id
func (r *PostRepository) FindPostByID(ctx context.Context, postID string) (*models.Post, error) {
	var p models.Post
	if err := r.col.FindOne(ctx, bson.M{"post_id": postID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, storeErr("find post", err)
	}
	return &p, nil
}

// QueryPosts returns posts matching q in q.OrderBy order.
func (r *PostRepository) QueryPosts(ctx context.Context, q models.PostQuery) ([]models.Post, error) {
	if len(q.Authors) > 0 && models.AuthorPattern(q.Authors) == "" {
		return []models.Post{}, nil
	}

	exclude := append([]string{}, q.ExcludePostIDs...)
	if q.ExcludeReplied && r.replies != nil {
		ids, err := r.replies.RepliedPostIDs(ctx)
		if err != nil {
			return nil, err
		}
		exclude = append(exclude, ids...)
	}
	if q.ExcludeSummarized && r.summaries != nil {
		ids, err := r.summaries.SummarizedPostIDs(ctx)
		if err != nil {
			return nil, err
		}
		exclude = append(exclude, ids...)
	}

	findOpts := options.Find().SetSort(sortFor(q.OrderBy))
	if q.Limit > 0 {
		findOpts.SetLimit(int64(q.Limit))
	}
	return r.find(ctx, postFilter(q, exclude), findOpts)
}

func postFilter(q models.PostQuery, exclude []string) bson.M {
	filter := bson.M{}
	if !q.ObservedSince.IsZero() {
		filter["observed_at"] = bson.M{"$gte": q.ObservedSince}
	}
	if q.ScoreAbove != nil {
		filter["insight_score"] = bson.M{"$gt": *q.ScoreAbove}
	}
	if len(exclude) > 0 {
		filter["post_id"] = bson.M{"$nin": exclude}
	}
	if pattern := models.AuthorPattern(q.Authors); pattern != "" {
		filter["author"] = primitive.Regex{Pattern: pattern, Options: "i"}
	}
	return filter
}

// ListRecentPosts returns the most recently observed posts.
func (r *PostRepository) ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	findOpts := options.Find().SetSort(sortFor(models.OrderByRecency)).SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, findOpts)
}

func (r *PostRepository) find(ctx context.Context, filter bson.M, findOpts *options.FindOptions) ([]models.Post, error) {
	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, storeErr("query posts", err)
	}
	defer cur.Close(ctx)

	results := []models.Post{}
	for cur.Next(ctx) {
		var p models.Post
		if err := cur.Decode(&p); err != nil {
			return nil, storeErr("decode post", err)
		}
		results = append(results, p)
	}
	if err := cur.Err(); err != nil {
		return nil, storeErr("iterate posts", err)
	}
	return results, nil
}

func sortFor(order models.PostOrder) bson.D {
	if order == models.OrderByRecency {
		return bson.D{{Key: "observed_at", Value: -1}, {Key: "_id", Value: -1}}
	}
	return bson.D{
		{Key: "insight_score", Value: -1},
		{Key: "observed_at", Value: -1},
		{Key: "_id", Value: -1},
	}
}
