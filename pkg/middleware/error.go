package middleware

import (
	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error a handler attached with c.Error.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		err := errutil.FromError(last.Err)
		if err.Code == errutil.StatusInternal {
			zap.L().With(logger.TraceFields(c.Request.Context())...).Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(last.Err),
			)
			err.Err = nil
		}

		c.JSON(err.Code.HTTPStatus(), err.JSON())
	}
}
