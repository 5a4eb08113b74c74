package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"timeline-agent/config"
	"timeline-agent/eventbus"
	"timeline-agent/models"
)

const (
	eventSource  = "timeline-agent"
	eventVersion = "1.0"
)

// Emitter 파이프라인 이벤트 발행 서비스.
// 발행 실패는 로그만 남기고 파이프라인 결과에 영향을 주지 않는다. nil Emitter 는 아무것도 하지 않는다.
type Emitter struct {
	bus   eventbus.Publisher
	topic eventbus.Topic
}

func NewEmitter(bus eventbus.Publisher, topic eventbus.Topic) *Emitter {
	return &Emitter{bus: bus, topic: topic}
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
	}
}

// PostIngested 포스트 저장 완료 이벤트 발행
func (e *Emitter) PostIngested(ctx context.Context, p models.Post) {
	base := newBase(PostIngested)
	e.publish(ctx, base, PostIngestedEvent{
		BaseEvent:    base,
		PostID:       p.PostID,
		Author:       p.Author,
		InsightScore: p.Score(),
		Topics:       p.Topics,
		Tokens:       p.Tokens,
	})
}

// ReplyPosted 답글 게시 완료 이벤트 발행
func (e *Emitter) ReplyPosted(ctx context.Context, r models.Reply) {
	base := newBase(ReplyPosted)
	e.publish(ctx, base, ReplyPostedEvent{
		BaseEvent: base,
		PostID:    r.OriginalPostID,
		Content:   r.Content,
		Strategy:  r.Strategy,
	})
}

// SummaryPosted 요약 게시 완료 이벤트 발행
func (e *Emitter) SummaryPosted(ctx context.Context, s models.SummaryPost) {
	base := newBase(SummaryPosted)
	e.publish(ctx, base, SummaryPostedEvent{
		BaseEvent:     base,
		SourcePostIDs: s.SourcePostIDs,
		Content:       s.Content,
		Strategy:      s.Strategy,
	})
}

func (e *Emitter) publish(ctx context.Context, base BaseEvent, payload any) {
	if e == nil || e.bus == nil {
		return
	}
	evt, err := eventbus.NewJSONEvent(base.ID, string(base.Type), payload)
	if err != nil {
		config.Logger.Errorf("failed to build %s event: %v", base.Type, err)
		return
	}
	// 사이클이 취소돼도 이미 끝난 작업의 이벤트는 보낸다.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := e.bus.Publish(pubCtx, e.topic.Base(), evt); err != nil {
		config.WarnWithFields("failed to publish event", config.Fields{
			"event_type": string(base.Type),
			"event_id":   base.ID,
			"error":      err.Error(),
		})
	}
}
