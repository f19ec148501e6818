package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vortexlabs/cupido-api/services"
)

// ShowForm handles GET /api/v1/form/:token - resolves the form token so the
// client can render (or refuse) the submission form.
func ShowForm(c *gin.Context) {
	access, err := services.ResolveAccess(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_id":          access.Order.ID,
			"status":            access.Order.Status,
			"plan":              access.Plan.Type,
			"plan_label":        access.Plan.Label,
			"max_messages":      access.Plan.MaxMessages,
			"has_audio":         access.Plan.HasAudio,
			"audio_char_limit":  access.Plan.AudioCharLimit,
			"has_presentation":  access.Plan.HasPresentation,
			"remaining":         access.Remaining,
			"allowed_to_submit": access.AllowedToSubmit,
			"reason":            access.Reason,
		},
	})
}

// SubmitForm handles POST /api/v1/form/:token/submit - one message
// submission against the order's quota.
func SubmitForm(c *gin.Context) {
	var req services.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	result, err := services.SubmitMessage(c.Param("token"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"remaining": result.Remaining,
		"status":    result.Status,
	})
}

// UploadPremium handles POST /api/v1/form/:token/upload - the premium
// plan's multipart slideshow upload. Captions arrive as a JSON array in the
// slides_data field; a malformed array degrades to empty captions.
func UploadPremium(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid multipart form",
			},
		})
		return
	}

	var captions []string
	if raw := c.PostForm("slides_data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &captions); err != nil {
			captions = nil
		}
	}

	req := services.PresentationRequest{
		RecipientPhone: c.PostForm("recipient_phone"),
		Title:          c.PostForm("title"),
		SenderNickname: c.PostForm("sender_nickname"),
		AudioText:      c.PostForm("audio_text"),
		Captions:       captions,
	}

	presentation, err := services.BuildPresentation(c.Param("token"), req, form.File["files"])
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"presentation_id": presentation.ID,
		"link":            "/p/" + presentation.ID,
	})
}
