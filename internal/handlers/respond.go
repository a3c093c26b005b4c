package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/kartikbazzad/bunbase/lookup/pkg/errors"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
)

// respondError writes err as {"error": message}. Server-side failures are
// logged with the request's trace id and their cause is not exposed.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.WithTraceID(c.Request.Context(), logger.Get()).
			Error("request failed", "path", c.Request.URL.Path, "error", err)
		_ = c.Error(err)
	}
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}
