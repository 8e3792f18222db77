package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/market-escrow/internal/logger"
	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Ошибки домена отдаются клиенту с кодом, внутренние маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperror.HTTPStatusOf(err)

		entry := logger.Log.WithFields(logrus.Fields{
			"error":      err.Error(),
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetString(ContextRequestIDKey),
		})

		var appErr *apperror.AppError
		if status >= http.StatusInternalServerError || !errors.As(err, &appErr) {
			entry.Error("request error")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "внутренняя ошибка сервера",
				"code":  apperror.ErrCodeInternal,
			})
			return
		}

		entry.Debug("request rejected")
		c.JSON(status, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
	}
}
