package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"crowdfund-api/internal/transport/http/response"
)

type Limiter interface {
	Allow(ctx context.Context, key string, capacity int, rate float64) (bool, error)
}

// RateLimit applies a per client IP token bucket under scope. Limiter
// failures let the request through.
func RateLimit(limiter Limiter, scope string, burst int, rps float64, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || burst <= 0 || rps <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
		defer cancel()

		allowed, err := limiter.Allow(ctx, scope+":ip:"+c.ClientIP(), burst, rps)
		if err != nil {
			log.WithError(err).WithField("scope", scope).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			response.Abort(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}
