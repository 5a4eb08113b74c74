package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline-agent/dto"
	"timeline-agent/metrics"
	"timeline-agent/models"
	"timeline-agent/repositories"
)

type downStore struct {
	*repositories.MemoryStore
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func seededStore(t *testing.T) *repositories.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		p := &models.Post{PostID: id, Content: "gm " + id, Author: "alice", ObservedAt: base.Add(time.Duration(i) * time.Hour)}
		p.ApplyEnrichment(models.Enrichment{Summary: "greeting", InsightScore: 70, Topics: []string{"gm"}})
		_, err := store.InsertPostIfAbsent(ctx, p)
		require.NoError(t, err)
	}
	require.NoError(t, store.InsertReply(ctx, &models.Reply{OriginalPostID: "newer", Content: "gm", Status: models.StatusPosted, CreatedAt: base}))
	require.NoError(t, store.InsertSummaryPost(ctx, &models.SummaryPost{Content: "quiet day", SourcePostIDs: []string{"older"}, Status: models.StatusPosted, CreatedAt: base}))
	return store
}

func do(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestHealth(t *testing.T) {
	store := seededStore(t)

	w := do(New(store, prometheus.NewRegistry()), "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(New(downStore{store}, prometheus.NewRegistry()), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestListPosts(t *testing.T) {
	r := New(seededStore(t), prometheus.NewRegistry())

	w := do(r, "/api/v1/posts?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body dto.ListDTO[dto.PostDTO]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Limit)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "newer", body.Data[0].PostID)
	assert.Equal(t, "greeting", body.Data[0].Summary)
	require.NotNil(t, body.Data[0].InsightScore)
	assert.Equal(t, 70, *body.Data[0].InsightScore)
}

func TestGetPost(t *testing.T) {
	r := New(seededStore(t), prometheus.NewRegistry())

	w := do(r, "/api/v1/posts/older")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"post_id":"older"`)
	assert.NotContains(t, w.Body.String(), "embedding")

	w = do(r, "/api/v1/posts/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListActivity(t *testing.T) {
	r := New(seededStore(t), prometheus.NewRegistry())

	w := do(r, "/api/v1/replies")
	require.Equal(t, http.StatusOK, w.Code)
	var replies dto.ListDTO[dto.ReplyDTO]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replies))
	require.Len(t, replies.Data, 1)
	assert.Equal(t, "newer", replies.Data[0].OriginalPostID)
	assert.Equal(t, "posted", replies.Data[0].Status)

	w = do(r, "/api/v1/summaries?limit=500")
	require.Equal(t, http.StatusOK, w.Code)
	var summaries dto.ListDTO[dto.SummaryPostDTO]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	assert.Equal(t, 100, summaries.Limit)
	require.Len(t, summaries.Data, 1)
	assert.Equal(t, []string{"older"}, summaries.Data[0].SourcePostIDs)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Action("reply", "posted")

	w := do(New(seededStore(t), reg), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "actions_total")
}
