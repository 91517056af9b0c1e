package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prohmpiriya/jelli-fit/pkg/logger"
)

const (
	// HeaderRequestID is echoed back on every response
	HeaderRequestID = "X-Request-ID"
	// ContextKeyRequestID is the gin context key
	ContextKeyRequestID = "request_id"
)

// RequestID assigns each request an id, reusing the caller's X-Request-ID
// when present, and stores it on both the gin and request contexts.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}

		c.Set(ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, id))
		c.Header(HeaderRequestID, id)

		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}
