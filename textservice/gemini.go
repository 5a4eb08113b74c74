package textservice

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"timeline-agent/config"
	"timeline-agent/models"
)

const derivationEmbedding = "embedding"

// GeminiService implements Service on top of the Google GenAI SDK.
type GeminiService struct {
	client         *genai.Client
	modelName      string
	embeddingModel string
	quota          *QuotaLimiter
	recorder       AILogRecorder
}

// NewGeminiService creates the client once. GEMINI_API_KEY must be set.
func NewGeminiService(ctx context.Context, cfg config.LLMConfig, quota *QuotaLimiter, recorder AILogRecorder) (*GeminiService, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	if cfg.Provider != "google" {
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiService{
		client:         client,
		modelName:      cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		quota:          quota,
		recorder:       recorder,
	}, nil
}

func (s *GeminiService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := s.reserve(ctx); err != nil {
		return "", err
	}

	startTime := time.Now()
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = req.MaxTokens
	}

	result, err := s.client.Models.GenerateContent(ctx, s.modelName, genai.Text(req.User), genCfg)

	entry := models.AILog{
		Derivation:  req.Derivation,
		ModelName:   s.modelName,
		InputPrompt: fmt.Sprintf("%s\n\n%s", req.System, req.User),
		RequestedAt: startTime,
	}
	if err != nil {
		s.record(ctx, entry, err)
		return "", fmt.Errorf("generate %s: %w", req.Derivation, err)
	}

	text := strings.TrimSpace(result.Text())
	entry.OutputResponse = text
	entry.ModelVersion = result.ModelVersion
	if result.UsageMetadata != nil {
		entry.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		entry.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		entry.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
	}
	if text == "" {
		s.record(ctx, entry, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	s.record(ctx, entry, nil)
	return text, nil
}

func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.reserve(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()
	entry := models.AILog{
		Derivation:  derivationEmbedding,
		ModelName:   s.embeddingModel,
		InputPrompt: text,
		RequestedAt: startTime,
	}

	resp, err := s.client.Models.EmbedContent(ctx, s.embeddingModel, genai.Text(text), nil)
	if err != nil {
		s.record(ctx, entry, err)
		return nil, fmt.Errorf("embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		s.record(ctx, entry, ErrEmptyResponse)
		return nil, ErrEmptyResponse
	}

	values := resp.Embeddings[0].Values
	entry.OutputResponse = fmt.Sprintf("%d dims", len(values))
	s.record(ctx, entry, nil)
	return values, nil
}

func (s *GeminiService) reserve(ctx context.Context) error {
	if s.quota == nil {
		return nil
	}
	ok, err := s.quota.WaitAndReserve(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

// record 는 호출 로그를 남긴다. 저장 실패는 호출 결과에 영향을 주지 않는다.
func (s *GeminiService) record(ctx context.Context, entry models.AILog, callErr error) {
	entry.CompletedAt = time.Now()
	entry.DurationMs = entry.CompletedAt.Sub(entry.RequestedAt).Milliseconds()
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Insert(context.WithoutCancel(ctx), entry); err != nil {
		config.Logger.Warnf("failed to record ai log (%s): %v", entry.Derivation, err)
	}
}
