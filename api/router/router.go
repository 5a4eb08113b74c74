package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timeline-agent/api/handlers"
	"timeline-agent/api/middleware"
	"timeline-agent/services"
)

// Store is the read side of the record store the API serves.
type Store interface {
	services.PostReader
	services.ActivityReader
	Ping(ctx context.Context) error
}

func New(store Store, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// v1 routes
	api := r.Group("/api/v1")
	{
		postsSvc := services.NewPostService(store)
		api.GET("/posts", handlers.ListPostsHandler(postsSvc))
		api.GET("/posts/:id", handlers.GetPostHandler(postsSvc))

		activitySvc := services.NewActivityService(store)
		api.GET("/replies", handlers.ListRepliesHandler(activitySvc))
		api.GET("/summaries", handlers.ListSummariesHandler(activitySvc))
	}

	return r
}
