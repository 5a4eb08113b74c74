package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActionStatus is the posting state of a reply or summary post.
type ActionStatus string

const (
	StatusPending ActionStatus = "pending"
	StatusPosted  ActionStatus = "posted"
	StatusFailed  ActionStatus = "failed"
)

// Reply is a generated reply to a stored post.
// Collection: replies
//
// original_post_id is not checked against posts at write time.
type Reply struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OriginalPostID string             `bson:"original_post_id" json:"original_post_id"`
	Content        string             `bson:"content" json:"content"`
	Status         ActionStatus       `bson:"status" json:"status"`
	Strategy       string             `bson:"strategy,omitempty" json:"strategy,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// SummaryPost is a published synthesis of several stored posts.
// Collection: summary_posts
type SummaryPost struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Content       string             `bson:"content" json:"content"`
	SourcePostIDs []string           `bson:"source_post_ids" json:"source_post_ids"`
	Status        ActionStatus       `bson:"status" json:"status"`
	Strategy      string             `bson:"strategy,omitempty" json:"strategy,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}
