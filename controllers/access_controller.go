package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vortexlabs/cupido-api/services"
)

// LookupRequest is the buyer's phone-login payload
type LookupRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// LookupOrders handles POST /api/v1/access - lists a buyer's orders by
// phone so a lost form link can be recovered.
func LookupOrders(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Phone is required",
			},
		})
		return
	}

	orders, err := services.LookupOrdersByPhone(req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	if len(orders) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No orders found for this phone",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
	})
}
