// Package ctxutil moves request scoped values from gin into context.Context.
package ctxutil

import (
	"context"
	"strconv"

	"orderhub/api/response"
	"orderhub/infrastructure/persistence"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the caller's user id; authentication is handled upstream.
const UserIDHeader = "X-User-ID"

// WithRequestID returns the request context tagged with the gin request id
// so service and SQL logs carry it.
func WithRequestID(c *gin.Context) context.Context {
	return persistence.ContextWithRequestID(c.Request.Context(), response.GetRequestID(c))
}

// UserID parses the caller id header. ok is false when it is missing or not a positive integer.
func UserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader(UserIDHeader), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
