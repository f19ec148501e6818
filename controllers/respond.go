package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vortexlabs/cupido-api/services"
)

// statusForCode maps service error codes onto HTTP statuses
var statusForCode = map[string]int{
	services.CodeTokenNotFound:     http.StatusNotFound,
	services.CodeNotFound:          http.StatusNotFound,
	services.CodeAccessDenied:      http.StatusForbidden,
	services.CodeLocked:            http.StatusForbidden,
	services.CodeUnauthorized:      http.StatusUnauthorized,
	services.CodeQuotaExhausted:    http.StatusConflict,
	services.CodeDuplicateSale:     http.StatusConflict,
	services.CodeInvalidTransition: http.StatusConflict,
	services.CodeInvalidPhone:      http.StatusBadRequest,
	services.CodeEmptyMessage:      http.StatusBadRequest,
	services.CodeAudioTextTooLong:  http.StatusBadRequest,
	services.CodeInvalidSchedule:   http.StatusBadRequest,
	services.CodeInvalidUpload:     http.StatusBadRequest,
	services.CodeInvalidInput:      http.StatusBadRequest,
}

// respondError renders a service error on the standard envelope. Unknown
// errors become a generic 500 so internals never leak to the client.
func respondError(c *gin.Context, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		status, ok := statusForCode[svcErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		if svcErr.Code == services.CodeInvalidTransition {
			// State-machine violations are hard errors: log the detail,
			// hand the client a generic closed response.
			log.Printf("Invalid transition: %s", svcErr.Message)
			c.JSON(status, gin.H{
				"success": false,
				"error": gin.H{
					"code":    svcErr.Code,
					"message": "This order is closed",
				},
			})
			return
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    svcErr.Code,
				"message": svcErr.Message,
			},
		})
		return
	}

	log.Printf("Internal error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "Something went wrong",
		},
	})
}
