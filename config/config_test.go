package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, SelectionPolicyScore, cfg.Selection.Policy)
	assert.Equal(t, 50, cfg.Selection.MinScore)
	assert.Equal(t, 24*time.Hour, cfg.Selection.Window)
	assert.Equal(t, 3, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.ActionDelay)
	assert.Equal(t, 1, cfg.Ingest.EnrichConcurrency)
	assert.NotEmpty(t, cfg.Selection.QuestionKeywords)
}

func TestParseReadsDurationsAndPolicy(t *testing.T) {
	data := []byte(`
selection:
  policy: Author_Priority
  min_score: 70
  window: 6h
  priority_authors: ["alice", "bob"]
dispatch:
  action_delay: 20s
schedule:
  reply_interval: 45m
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, SelectionPolicyAuthorPriority, cfg.Selection.Policy)
	assert.Equal(t, 70, cfg.Selection.MinScore)
	assert.Equal(t, 6*time.Hour, cfg.Selection.Window)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Selection.PriorityAuthors)
	assert.Equal(t, 20*time.Second, cfg.Dispatch.ActionDelay)
	assert.Equal(t, 45*time.Minute, cfg.Schedule.ReplyInterval)
}

func TestParseRejectsUnknownPolicy(t *testing.T) {
	_, err := Parse([]byte("selection:\n  policy: random\n"))
	assert.Error(t, err)
}

func TestParseRejectsOutOfRangeMinScore(t *testing.T) {
	_, err := Parse([]byte("selection:\n  min_score: 120\n"))
	assert.Error(t, err)
}
