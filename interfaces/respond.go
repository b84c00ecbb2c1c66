package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"applyai/domain"
)

// respondError writes err as {"error": {code, message, details}}. Server-side failures are logged.
func respondError(c *gin.Context, err error) {
	appErr := domain.AsAppError(err)
	status := appErr.HTTPCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	entry := requestLog(c).WithError(err).WithField("code", appErr.Code)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	c.AbortWithStatusJSON(status, gin.H{"error": appErr})
}
