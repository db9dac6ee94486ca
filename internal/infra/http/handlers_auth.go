package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token             string    `json:"token,omitempty"`
	ExpiresAt         time.Time `json:"expires_at,omitempty"`
	TwoFactorRequired bool      `json:"two_factor_required,omitempty"`
	TwoFactorToken    string    `json:"two_factor_token,omitempty"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := s.register.Execute(c.Request.Context(), brokerIDFrom(c), req.Email, req.Password)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, gin.H{
		"id":    user.ID,
		"email": user.Email,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "email and password are required")
		return
	}
	result, err := s.login.Execute(c.Request.Context(), brokerIDFrom(c), req.Email, req.Password)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if result.TwoFactorRequired {
		writeOK(c, http.StatusOK, sessionResponse{
			TwoFactorRequired: true,
			TwoFactorToken:    result.Token,
			ExpiresAt:         result.ExpiresAt,
		})
		return
	}
	writeOK(c, http.StatusOK, sessionResponse{Token: result.Token, ExpiresAt: result.ExpiresAt})
}

func (s *Server) handleLoginTwoFactor(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "token and code are required")
		return
	}
	result, err := s.login.CompleteTwoFactor(c.Request.Context(), req.Token, req.Code)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, sessionResponse{Token: result.Token, ExpiresAt: result.ExpiresAt})
}

// handleLogout deletes the session row for the presented token only. Other
// live sessions of the same identity keep working.
func (s *Server) handleLogout(c *gin.Context) {
	if err := s.sessions.DeleteByToken(c.Request.Context(), bearerToken(c)); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"logged_out": true})
}

func (s *Server) handleMe(c *gin.Context) {
	principal := principalFrom(c)
	user, err := s.users.FindByID(c.Request.Context(), principal.UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{
		"id":                 user.ID,
		"email":              user.Email,
		"role":               user.Role,
		"status":             user.Status,
		"kyc_status":         user.KYCStatus,
		"two_factor_enabled": user.TwoFactorEnabled,
	})
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "email is required")
		return
	}
	token, err := s.forgot.Execute(c.Request.Context(), brokerIDFrom(c), req.Email)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if token != "" {
		// Delivery goes through mail in production. The token is never part
		// of the response body, so the endpoint answers identically for
		// known and unknown addresses.
		s.logger.Info("password reset issued", zap.String("broker", c.GetString(ctxBrokerSlug)))
	}
	writeOK(c, http.StatusOK, gin.H{"sent": true})
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "token and password are required")
		return
	}
	if err := s.reset.Execute(c.Request.Context(), req.Token, req.Password); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"reset": true})
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req struct {
		Current string `json:"current_password" binding:"required"`
		Next    string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "current_password and new_password are required")
		return
	}
	principal := principalFrom(c)
	if err := s.changePassword.Execute(c.Request.Context(), principal.UserID, req.Current, req.Next); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"changed": true})
}

func (s *Server) handleTwoFactorSetup(c *gin.Context) {
	principal := principalFrom(c)
	uri, err := s.twoFactor.Begin(c.Request.Context(), principal.UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"otpauth_uri": uri})
}

func (s *Server) handleTwoFactorEnable(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "code is required")
		return
	}
	principal := principalFrom(c)
	codes, err := s.twoFactor.Enable(c.Request.Context(), principal.UserID, req.Code)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"backup_codes": codes})
}

func (s *Server) handleTwoFactorDisable(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "password is required")
		return
	}
	principal := principalFrom(c)
	if err := s.twoFactor.Disable(c.Request.Context(), principal.UserID, req.Password); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"disabled": true})
}
