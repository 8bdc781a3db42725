package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
)

// StatusForError maps an error to its HTTP status class.
func StatusForError(err error) int {
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return http.StatusNotFound
	}
	appErr, ok := utils.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case utils.KindValidation:
		return http.StatusBadRequest
	case utils.KindAuthentication:
		return http.StatusUnauthorized
	case utils.KindSubscription:
		return http.StatusPaymentRequired
	case utils.KindAuthorization:
		return http.StatusForbidden
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindConflict, utils.KindInsufficientStock:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// RespondError writes {"error", "code", "details"}. Internal errors are logged and hidden.
func RespondError(c *gin.Context, err error) {
	status := StatusForError(err)
	if status == http.StatusNotFound && errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(status, gin.H{"error": "not found", "code": "not_found"})
		return
	}
	appErr, ok := utils.AsAppError(err)
	if !ok {
		_ = c.Error(err)
		config.LogError(config.GetLogger(), "http", c.FullPath(), "unhandled error", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
		return
	}
	body := gin.H{"error": appErr.Message, "code": appErr.Code}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}
