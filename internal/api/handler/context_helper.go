package handler

import (
	"github.com/gin-gonic/gin"

	"pgvplaning/backend/internal/api/middleware"
	"pgvplaning/backend/pkg/response"
)

// MustGetUserID extracts the caller injected by JWTAuth. On false a 401
// has already been written and the handler must return.
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, 10002, "non authentifié")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "non authentifié")
		return "", false
	}
	return s, true
}

// MustGetParam returns a non-empty path parameter or writes a 400.
func MustGetParam(c *gin.Context, name, message string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		response.BadRequest(c, 10001, message)
		return "", false
	}
	return v, true
}
