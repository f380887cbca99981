package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cargolink/internal/repository"
	"cargolink/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger       *zap.Logger
	authServ     *service.AuthService
	exposeErrors bool
}

// NewAuthHandler crea un AuthHandler. exposeErrors habilita el detalle de
// errores internos en las respuestas 500 (solo fuera de produccion).
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, exposeErrors bool) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		authServ:     authServ,
		exposeErrors: exposeErrors,
	}
}

// Register maneja POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
		UserType string `json:"userType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	result, err := h.authServ.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		UserType: req.UserType,
	})
	if err != nil {
		h.respondError(c, err, "register failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "User registered successfully. Please verify your email.",
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
		"user":         result.User,
	})
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		UserType string `json:"userType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	result, err := h.authServ.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		UserType: req.UserType,
	})
	if err != nil {
		h.respondError(c, err, "login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
		"user":         result.User,
	})
}

// RefreshToken maneja POST /api/auth/refresh-token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token required"})
		return
	}

	pair, err := h.authServ.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(c, err, "refresh token failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Token refreshed successfully",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// VerifyEmail maneja POST /api/auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Verification token required"})
		return
	}

	if err := h.authServ.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		h.respondError(c, err, "verify email failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// ResendVerification maneja POST /api/auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	if err := h.authServ.ResendVerification(c.Request.Context(), claims.UserID); err != nil {
		h.respondError(c, err, "resend verification failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent"})
}

// ForgotPassword maneja POST /api/auth/forgot-password. La respuesta es la
// misma exista o no la cuenta.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		UserType string `json:"userType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and user type are required"})
		return
	}

	if err := h.authServ.ForgotPassword(c.Request.Context(), req.Email, req.UserType); err != nil {
		h.respondError(c, err, "forgot password failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If an account exists, a password reset link has been sent."})
}

// ResetPassword maneja POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Token and new password are required"})
		return
	}

	if err := h.authServ.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.respondError(c, err, "reset password failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// ChangePassword maneja POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Current and new password are required"})
		return
	}

	if err := h.authServ.ChangePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(c, err, "change password failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// Logout maneja POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	if err := h.authServ.Logout(c.Request.Context(), claims.UserID); err != nil {
		h.respondError(c, err, "logout failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// GetProfile maneja GET /api/auth/profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	user, err := h.authServ.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err, "get profile failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile maneja PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone" binding:"omitempty,phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid phone number format"})
		return
	}

	user, err := h.authServ.UpdateProfile(c.Request.Context(), claims.UserID, service.UpdateProfileInput{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.respondError(c, err, "update profile failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// respondError mapea errores de servicio a status + body JSON. Nada llega al
// transporte sin pasar por aca.
func (h *AuthHandler) respondError(c *gin.Context, err error, logMsg string) {
	var (
		vErr    *service.ValidationError
		lockErr *service.AccountLockedError
		failErr *service.FailedLoginError
	)
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": vErr.Message})
	case errors.As(err, &lockErr):
		c.JSON(http.StatusLocked, gin.H{
			"message":   fmt.Sprintf("Account is locked. Try again in %d minutes.", lockErr.MinutesRemaining),
			"lockUntil": lockErr.LockUntil,
		})
	case errors.As(err, &failErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"message":           "Invalid credentials",
			"attemptsRemaining": failErr.AttemptsRemaining,
		})
	case errors.Is(err, repository.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists with this email"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, service.ErrInvalidRefreshToken):
		c.JSON(http.StatusForbidden, gin.H{"message": "Invalid refresh token"})
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid or expired token"})
	case errors.Is(err, service.ErrAlreadyVerified):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already verified"})
	case errors.Is(err, service.ErrInvalidCurrentPassword):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Current password is incorrect"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		body := gin.H{"message": "Server error"}
		if h.exposeErrors {
			body["error"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}
