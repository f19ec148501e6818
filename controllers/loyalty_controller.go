package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vortexlabs/cupido-api/middleware"
	"github.com/vortexlabs/cupido-api/services"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateTestRequest struct {
	TargetPhone  string `json:"target_phone" binding:"required"`
	FirstMessage string `json:"first_message" binding:"required"`
}

type LoyaltyMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// RegisterLoyaltyUser handles POST /api/v1/loyalty/register
func RegisterLoyaltyUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Name, email and password are required",
			},
		})
		return
	}

	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Password must be at least 6 characters",
			},
		})
		return
	}

	user, err := services.RegisterLoyaltyUser(req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.CreateToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// LoginLoyaltyUser handles POST /api/v1/loyalty/login
func LoginLoyaltyUser(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Email and password are required",
			},
		})
		return
	}

	user, err := services.LoginLoyaltyUser(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.CreateToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
	})
}

// CreateLoyaltyTest handles POST /api/v1/loyalty/tests
func CreateLoyaltyTest(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Target phone and first message are required",
			},
		})
		return
	}

	test, err := services.CreateLoyaltyTest(userID, req.TargetPhone, req.FirstMessage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"test":    test,
	})
}

// ListLoyaltyTests handles GET /api/v1/loyalty/tests
func ListLoyaltyTests(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	tests, err := services.ListLoyaltyTests(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tests":   tests,
	})
}

// GetLoyaltyMessages handles GET /api/v1/loyalty/tests/:id/messages
func GetLoyaltyMessages(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	testID, err := parseTestID(c)
	if err != nil {
		return
	}

	result, err := services.GetLoyaltyMessages(testID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"messages":    result.Messages,
		"blurred":     result.Blurred,
		"test_status": result.TestStatus,
		"expires_at":  result.ExpiresAt,
	})
}

// SendLoyaltyMessage handles POST /api/v1/loyalty/tests/:id/messages
func SendLoyaltyMessage(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	testID, err := parseTestID(c)
	if err != nil {
		return
	}

	var req LoyaltyMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Content is required",
			},
		})
		return
	}

	if err := services.SendLoyaltyMessage(testID, userID, req.Content); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// parseTestID reads the :id route param and writes the error response
// itself when it is not a valid numeric ID.
func parseTestID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid test ID",
			},
		})
		return 0, err
	}
	return uint(id), nil
}
