package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"timeline-agent/models"
)

type AILogRepository struct {
	col *mongo.Collection
}

func NewAILogRepository(db *mongo.Database) *AILogRepository {
	return &AILogRepository{col: db.Collection(aiLogsCollection)}
}

func (r *AILogRepository) Insert(ctx context.Context, log models.AILog) error {
	if log.RequestedAt.IsZero() {
		log.RequestedAt = time.Now()
	}
	if _, err := r.col.InsertOne(ctx, log); err != nil {
		return storeErr("insert ai log", err)
	}
	return nil
}
