package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout attaches a deadline to the request context and runs the handler
// chain synchronously, keeping gin.Context access single-threaded.
//
// After the chain returns, if the deadline has fired and the handler wrote
// nothing, a 503 is sent. A handler that blocks without checking its context
// cannot be interrupted here; the deadline still unwinds blocked storage and
// upstream HTTP calls because those propagate the request context.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() != nil && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "request timed out",
			})
		}
	}
}
