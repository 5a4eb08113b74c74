package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"timeline-agent/config"
	"timeline-agent/repositories"
	"timeline-agent/services"
)

func limitParam(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return limit
}

// ListPostsHandler returns the most recently observed posts.
// GET /api/v1/posts?limit=20
func ListPostsHandler(svc *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.List(c.Request.Context(), limitParam(c))
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// GetPostHandler returns one post by its platform id.
// GET /api/v1/posts/:id
func GetPostHandler(svc *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// GET /api/v1/replies?limit=20
func ListRepliesHandler(svc *services.ActivityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.ListReplies(c.Request.Context(), limitParam(c))
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// GET /api/v1/summaries?limit=20
func ListSummariesHandler(svc *services.ActivityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.ListSummaries(c.Request.Context(), limitParam(c))
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func internalError(c *gin.Context, err error) {
	config.Logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
