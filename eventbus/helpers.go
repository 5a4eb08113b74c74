package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// NewJSONEvent 생성: payload를 JSON으로 인코딩하여 Event를 구성합니다.
// id가 빈 문자열이면 고해상도 타임스탬프 기반의 ID를 생성합니다.
func NewJSONEvent(id, eventType string, payload any) (Event, error) {
	if id == "" {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("payload marshal 실패: %w", err)
	}
	return Event{
		ID:      id,
		Type:    eventType,
		Payload: b,
	}, nil
}

// DecodeJSON은 Event.Payload를 제네릭 타입으로 언마샬합니다.
func DecodeJSON[T any](evt Event) (T, error) {
	var out T
	if err := json.Unmarshal(evt.Payload, &out); err != nil {
		var zero T
		return zero, fmt.Errorf("payload unmarshal 실패: %w", err)
	}
	return out, nil
}

// NoopBus drops every event. Used when Kafka is not configured.
type NoopBus struct{}

func (NoopBus) Publish(context.Context, string, Event) error { return nil }
func (NoopBus) Close()                                       {}

// MemoryBus keeps published events in memory.
type MemoryBus struct {
	mu     sync.Mutex
	events map[string][]Event
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{events: map[string][]Event{}}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[topic] = append(b.events[topic], event)
	return nil
}

func (b *MemoryBus) Close() {}

// Events returns what was published on topic, oldest first.
func (b *MemoryBus) Events(topic string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event{}, b.events[topic]...)
}
