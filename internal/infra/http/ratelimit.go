package http

import (
	"net/http"
	"strconv"
	"time"

	"backoffice/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// limitByClient enforces the fixed-window counter on credential endpoints,
// keyed by broker and client address so tenants do not share budgets. The
// limiter fails open: an unavailable backend must not lock every client out
// of login.
func (s *Server) limitByClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
			c.Next()
			return
		}
		key := "broker:" + brokerIDFrom(c) + ":addr:" + c.ClientIP()
		decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			writeError(c, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
