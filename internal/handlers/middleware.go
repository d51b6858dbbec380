package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/logger"
)

// RequestLogger stores log on the request context and logs every
// completed request.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log))
		c.Next()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}
		log.Info("Request completed",
			"method", c.Request.Method,
			"path", path,
			"status_code", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// RateLimit limits requests per client IP with an in-memory store. rate
// uses the limiter format "<limit>-<period>", e.g. "10-M".
func RateLimit(rate string) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	l := limiter.New(memory.NewStore(), r)
	return mgin.NewMiddleware(l, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		httpx.JSONError(c, http.StatusTooManyRequests, "too many requests", nil)
	})), nil
}
