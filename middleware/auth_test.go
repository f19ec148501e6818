package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/vortexlabs/cupido-api/config"
)

func setupAuthTest() {
	gin.SetMode(gin.TestMode)
	config.SetConfig(&config.Config{
		GoEnv:            "test",
		LoyaltyJWTSecret: "test-secret",
	})
}

func TestCreateAndParseToken(t *testing.T) {
	setupAuthTest()

	token, err := CreateToken(42)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	userID, err := ParseToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	setupAuthTest()

	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	setupAuthTest()

	claims := loyaltyClaims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	assert.NoError(t, err)

	_, err = ParseToken(forged)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	setupAuthTest()

	claims := loyaltyClaims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	stale, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	assert.NoError(t, err)

	_, err = ParseToken(stale)
	assert.Error(t, err)
}

func TestEnsureValidToken(t *testing.T) {
	setupAuthTest()

	router := gin.New()
	router.GET("/protected", EnsureValidToken(), func(c *gin.Context) {
		userID, err := GetUserID(c)
		assert.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	token, err := CreateToken(7)
	assert.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not a bearer scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestGetUserIDWithoutMiddleware(t *testing.T) {
	setupAuthTest()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err := GetUserID(c)
	assert.Error(t, err)
}
