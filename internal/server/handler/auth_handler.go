package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"user-auth-service/internal/auth/clientinfo"
	"user-auth-service/internal/auth/service"
	"user-auth-service/internal/server/middleware"
)

// AuthHandler exposes the authentication and session endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates an inactive account and mails its activation code.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.Auth.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"is_active": user.IsActive,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for an access/refresh pair and records the
// client's device on the new session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	pair, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password, clientinfo.FromRequest(c.Request))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a new pair bound to the same session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout deletes the session bound to the presented access token. The token
// does not need to verify, so clients holding an expired token can still log
// out. No token at all is 404: there is nothing to log out of.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no access token presented"})
		return
	}
	if err := h.Auth.Logout(c.Request.Context(), token); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type logoutDeviceRequest struct {
	UserID    int64  `json:"userId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
}

// LogoutDevice deletes one named session. The target user id must match the
// authenticated caller; the session lookup is additionally user-scoped so a
// guessed session id belonging to someone else deletes nothing.
func (h *AuthHandler) LogoutDevice(c *gin.Context) {
	var req logoutDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	callerID, ok := middleware.GetUserID(c)
	if !ok || callerID != req.UserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session does not belong to caller"})
		return
	}
	if err := h.Auth.LogoutDevice(c.Request.Context(), req.UserID, req.SessionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

type logoutAllRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

// LogoutAll deletes every session for the user ("sign out everywhere").
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	var req logoutAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	callerID, ok := middleware.GetUserID(c)
	if !ok || callerID != req.UserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "cannot log out another user"})
		return
	}
	if err := h.Auth.LogoutAll(c.Request.Context(), req.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all sessions deleted"})
}

// Sessions lists the caller's active sessions so clients can render a
// "manage devices" view.
func (h *AuthHandler) Sessions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	sessions, err := h.Auth.Sessions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"id":          s.ID,
			"ip":          s.IP,
			"device_name": s.DeviceName,
			"browser":     s.Browser,
			"os":          s.OS,
			"created_at":  s.CreatedAt,
			"expires_at":  s.RefreshExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyOTP activates the account when the code matches.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.Auth.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account activated"})
}

type resendCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendCode issues a fresh activation code for an inactive account.
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req resendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.Auth.ResendCode(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "code sent"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword replaces the caller's password after checking the old one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.Auth.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// writeError maps service sentinels onto HTTP statuses. OTP expiry gets a
// machine-readable code so clients can prompt for a resend instead of a
// fresh login.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOTPExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "otp_expired"})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionRevoked),
		errors.Is(err, service.ErrInvalidOTP):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyActivated):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("auth: internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
