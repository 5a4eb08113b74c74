package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"timeline-agent/config"
)

const headerRequestID = "X-Request-Id"

// RequestTrace 는 모든 요청에 Request ID 를 보장하고 응답 헤더와 접근 로그에 남긴다.
func RequestTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(headerRequestID, requestID)

		c.Next()

		// /metrics 는 스크레이프마다 호출되므로 디버그로만 남긴다.
		if c.Request.URL.Path == "/metrics" {
			config.Logger.Debugf("api_request path=/metrics status=%d", c.Writer.Status())
			return
		}
		config.InfoWithFields("completed request", config.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  requestID,
		})
	}
}
