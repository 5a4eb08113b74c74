package textservice

import (
	"context"
	"errors"

	"timeline-agent/models"
)

var (
	// ErrQuotaExceeded is returned when the daily call budget is spent.
	ErrQuotaExceeded = errors.New("text service daily quota exceeded")
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("text service returned an empty response")
)

// CompletionRequest is one prompt sent to the language model.
type CompletionRequest struct {
	// Derivation names the purpose of the call (summary, insight_score, reply, ...).
	Derivation  string
	System      string
	User        string
	MaxTokens   int32
	Temperature float32
}

// Service is the language-model backend. Implementations are stateless per call.
type Service interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// AILogRecorder stores per-call usage logs.
type AILogRecorder interface {
	Insert(ctx context.Context, log models.AILog) error
}
