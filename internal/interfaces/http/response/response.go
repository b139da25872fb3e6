package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "scratch-card.backend/internal/domain/errors"
	"scratch-card.backend/pkg/logger"
)

// Success sends an ok:true response. Keys in data are merged into the envelope.
func Success(c *gin.Context, status int, data gin.H) {
	body := gin.H{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// Error sends an ok:false response with the status derived from err.
// Errors that are neither validation nor application errors are logged and hidden.
func Error(c *gin.Context, err error) {
	var validation *domainerrors.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":     false,
			"error":  validation.Message,
			"code":   domainerrors.CodeValidation,
			"fields": validation.Fields,
		})
		return
	}

	var appErr *domainerrors.AppError
	if !errors.As(err, &appErr) {
		appErr = domainerrors.InternalError(err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
	}

	c.JSON(appErr.Status, gin.H{
		"ok":    false,
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}
