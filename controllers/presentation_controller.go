package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vortexlabs/cupido-api/services"
)

// GetPresentation handles GET /api/v1/presentations/:id - resolves a
// slideshow with fresh presigned slide URLs and bumps the view count.
func GetPresentation(c *gin.Context) {
	id := c.Param("id")

	presentation, err := services.GetPresentation(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"presentation": presentation,
	})
}
