package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/forecast-autoscaler/internal/auth"
	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/validation"
)

// AuthHandler logs in the single configured operator account.
type AuthHandler struct {
	username     string
	passwordHash string
	authService  *auth.Service
}

func NewAuthHandler(username, passwordHash string, authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		username:     username,
		passwordHash: passwordHash,
		authService:  authService,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

// Login exchanges the operator credentials for a bearer token.
// @Summary Operator login
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Operator credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "Malformed request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 503 {object} map[string]string "Login not configured"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	if h.username == "" || h.passwordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "operator login is not configured"})
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password
	passOK := auth.CheckPassword(req.Password, h.passwordHash)
	if !userOK || !passOK {
		logger.WithField("username", req.Username).Warn("Rejected operator login")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(h.username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	maxAge := int(h.authService.Duration().Seconds())

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("auth_token", token, maxAge, "/", "", true, true)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: maxAge,
		Username:  h.username,
	})
}
