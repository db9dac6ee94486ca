package http

import (
	"net/http"
	"strings"
	"time"

	"backoffice/internal/domain"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListBrokers(c *gin.Context) {
	brokers, err := s.brokers.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, brokers)
}

func (s *Server) handleCreateBroker(c *gin.Context) {
	var req struct {
		Slug     string            `json:"slug" binding:"required"`
		Domain   string            `json:"domain" binding:"required"`
		Settings map[string]string `json:"settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "slug and domain are required")
		return
	}
	broker := &domain.Broker{
		Slug:     req.Slug,
		Domain:   req.Domain,
		Settings: req.Settings,
	}
	if err := s.brokers.Create(c.Request.Context(), broker); err != nil {
		writeDomainError(c, err)
		return
	}
	s.brokerCache.Invalidate()
	s.audit(c, domain.AuditBrokerCreated, "broker", broker.ID, map[string]any{"slug": broker.Slug})
	writeOK(c, http.StatusCreated, broker)
}

func (s *Server) handleGetBroker(c *gin.Context) {
	broker, err := s.brokers.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, broker)
}

// handleSetBrokerStatus toggles a whole tenant. Deactivation takes effect on
// the next request because tenant resolution only matches active brokers.
func (s *Server) handleSetBrokerStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}
	status := domain.BrokerStatus(req.Status)
	if status != domain.BrokerActive && status != domain.BrokerInactive {
		writeError(c, http.StatusBadRequest, "status must be active or inactive")
		return
	}
	if err := s.brokers.UpdateStatus(c.Request.Context(), c.Param("id"), status); err != nil {
		writeDomainError(c, err)
		return
	}
	s.brokerCache.Invalidate()
	s.audit(c, domain.AuditBrokerStatusSet, "broker", c.Param("id"), map[string]any{"status": string(status)})
	writeOK(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": status})
}

// handleCreateAdmin provisions a staff account for one broker.
func (s *Server) handleCreateAdmin(c *gin.Context) {
	var req struct {
		BrokerID string `json:"broker_id" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "broker_id, email and password are required")
		return
	}
	role := domain.RoleAdmin
	if req.Role != "" {
		role = domain.Role(req.Role)
	}
	if role != domain.RoleAdmin && role != domain.RolePartner {
		writeError(c, http.StatusBadRequest, "role must be admin or partner")
		return
	}
	if _, err := s.brokers.GetByID(c.Request.Context(), req.BrokerID); err != nil {
		writeDomainError(c, err)
		return
	}
	hash, err := s.changePassword.Hasher.Hash([]byte(req.Password))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	now := time.Now().UTC()
	user := &domain.User{
		BrokerID:     req.BrokerID,
		Email:        strings.TrimSpace(strings.ToLower(req.Email)),
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserActive,
		KYCStatus:    domain.KYCApproved,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		writeDomainError(c, err)
		return
	}
	s.audit(c, domain.AuditAdminCreated, "user", user.ID, map[string]any{"role": string(role), "broker_id": req.BrokerID})
	writeOK(c, http.StatusCreated, gin.H{"id": user.ID, "email": user.Email, "role": user.Role})
}
