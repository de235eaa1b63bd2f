package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"workspace-app/internal/svcerr"
)

// ErrorHandler is the base stage of the chain. Handlers record failures
// with c.Error; after the handler runs, a domain error is translated to
// a client-visible bad request carrying its stable code, a missing
// adapter capability maps to 501, and anything else stays an opaque
// internal failure. Services never catch and swallow their own errors.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		if e := svcerr.As(err); e != nil {
			status := http.StatusBadRequest
			if svcerr.IsNotImplemented(err) {
				status = http.StatusNotImplemented
			}
			c.JSON(status, gin.H{"error": e.Message, "code": e.Code})
			return
		}

		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
