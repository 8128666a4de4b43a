package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached with c.Error and
// turns panics into 500s.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal error",
					"kind":  apperr.KindInternal,
				})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		kind := apperr.KindOf(err)
		if kind == apperr.KindInternal || kind == apperr.KindTransientIO {
			logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		}
		c.JSON(apperr.HTTPStatus(err), gin.H{
			"error": apperr.Message(err),
			"kind":  kind,
		})
	}
}
