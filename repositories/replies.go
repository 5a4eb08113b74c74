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

type ReplyRepository struct {
	col *mongo.Collection
}

func NewReplyRepository(db *mongo.Database) *ReplyRepository {
	return &ReplyRepository{col: db.Collection(repliesCollection)}
}

func (r *ReplyRepository) InsertReply(ctx context.Context, reply *models.Reply) error {
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now()
	}
	if reply.Status == "" {
		reply.Status = models.StatusPending
	}
	res, err := r.col.InsertOne(ctx, reply)
	if err != nil {
		return storeErr("insert reply", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		reply.ID = oid
	}
	return nil
}

// HasSuccessfulReply reports whether a posted reply exists for postID.
func (r *ReplyRepository) HasSuccessfulReply(ctx context.Context, postID string) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{"original_post_id": postID, "status": models.StatusPosted}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, storeErr("find reply", err)
	}
	return true, nil
}

// RepliedPostIDs returns the distinct post ids that have a posted reply.
func (r *ReplyRepository) RepliedPostIDs(ctx context.Context) ([]string, error) {
	values, err := r.col.Distinct(ctx, "original_post_id", bson.M{"status": models.StatusPosted})
	if err != nil {
		return nil, storeErr("distinct replied ids", err)
	}
	return stringValues(values), nil
}

// ListReplies returns the newest replies first.
func (r *ReplyRepository) ListReplies(ctx context.Context, limit int) ([]models.Reply, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, storeErr("list replies", err)
	}
	defer cur.Close(ctx)

	results := []models.Reply{}
	if err := cur.All(ctx, &results); err != nil {
		return nil, storeErr("decode replies", err)
	}
	return results, nil
}

func stringValues(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
