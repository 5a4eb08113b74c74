package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	PostIngested  EventType = "post.ingested"
	ReplyPosted   EventType = "reply.posted"
	SummaryPosted EventType = "summary.posted"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// PostIngestedEvent 새 포스트가 보강되어 저장되었을 때 발행되는 이벤트
type PostIngestedEvent struct {
	BaseEvent
	PostID       string   `json:"post_id"`
	Author       string   `json:"author"`
	InsightScore int      `json:"insight_score"`
	Topics       []string `json:"topics"`
	Tokens       []string `json:"tokens"`
}

// ReplyPostedEvent 답글 게시 성공 이벤트
type ReplyPostedEvent struct {
	BaseEvent
	PostID   string `json:"post_id"`
	Content  string `json:"content"`
	Strategy string `json:"strategy,omitempty"`
}

// SummaryPostedEvent 요약 게시 성공 이벤트
type SummaryPostedEvent struct {
	BaseEvent
	SourcePostIDs []string `json:"source_post_ids"`
	Content       string   `json:"content"`
	Strategy      string   `json:"strategy,omitempty"`
}

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any

	switch eventType {
	case PostIngested:
		event = &PostIngestedEvent{}
	case ReplyPosted:
		event = &ReplyPostedEvent{}
	case SummaryPosted:
		event = &SummaryPostedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return event, nil
}
