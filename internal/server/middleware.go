package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
)

// Recovery turns handler panics into a logged 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				logging.Error("Panic serving request",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"panic", p,
					"stack", string(debug.Stack()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// Logger logs one line per request
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
		}
		if id := c.GetHeader("X-GitHub-Delivery"); id != "" {
			args = append(args, "delivery", id)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logging.Error("HTTP request", args...)
		case status >= http.StatusBadRequest:
			logging.Warn("HTTP request", args...)
		default:
			logging.Debug("HTTP request", args...)
		}
	}
}
