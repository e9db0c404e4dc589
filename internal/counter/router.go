package counter

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewRouter(svc *Service, logger *slog.Logger) http.Handler {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/", func(c *gin.Context) {
		count, err := svc.Hit(c.Request.Context())
		if err != nil {
			logger.Error("visit counter increment failed", slog.Any("error", err))
			if isUnavailable(err) {
				c.String(http.StatusServiceUnavailable, "Redis is unavailable, please try again later.")
				return
			}
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		c.String(http.StatusOK, "Hello World! I have been visited %d times.", count)
	})

	return r
}

// isUnavailable reports whether the error looks like Redis being down
// rather than a bug, so the handler can answer 503 instead of 500.
func isUnavailable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
