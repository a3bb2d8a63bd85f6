package server

import (
	"strings"

	"github.com/blizzgame/marketplace/internal/events"
	obscontext "github.com/blizzgame/marketplace/internal/observability/context"
	"github.com/gin-gonic/gin"
)

const HeaderCorrelationID = "X-Correlation-Id"

// CorrelationID carries the caller's correlation id, or the request id, into
// the context so published events can be traced back to the request.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderCorrelationID))
		if id == "" {
			id = obscontext.RequestIDFromContext(c.Request.Context())
		}
		ctx := c.Request.Context()
		if id != "" {
			ctx = events.ContextWithCorrelationID(ctx, id)
		} else {
			ctx, id = events.EnsureCorrelationID(ctx)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderCorrelationID, id)
		c.Next()
	}
}
