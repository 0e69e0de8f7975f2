package middleware

import (
	"github.com/gin-gonic/gin"

	"cinehub/internal/apperr"
)

// ErrorHandler renders the last error pushed with c.Error as the JSON error
// body and logs it with its cause.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, body := apperr.ToBody(err)

		entry := Log(c).WithField("code", body.Code).WithError(err)
		if status >= 500 {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}

		if !c.Writer.Written() {
			c.JSON(status, body)
		}
	}
}
