package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pgvplaning/backend/pkg/redis"
	"pgvplaning/backend/pkg/response"
)

// RateLimit is a Redis sliding window per caller and route. Authenticated
// callers are keyed by user, anonymous ones by IP. A nil client or a Redis
// error lets the request through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		who := c.GetString(ContextUserID)
		if who == "" {
			who = c.ClientIP()
		}
		key := fmt.Sprintf("pgvplaning:rate_limit:%s:%s", who, c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 10004, "trop de requêtes, réessayez plus tard")
			c.Abort()
			return
		}

		c.Next()
	}
}
