package http

import (
	"net/http"
	"strconv"

	"backoffice/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) handleAdminListUsers(c *gin.Context) {
	users, err := s.users.ListByBroker(c.Request.Context(), brokerIDFrom(c), domain.RoleClient, domain.RolePartner)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, len(users))
	for i, user := range users {
		out[i] = userView(user)
	}
	writeOK(c, http.StatusOK, out)
}

// adminUser loads a user and pins it to the resolved broker. Identities of
// other tenants are invisible, including to admins guessing ids.
func (s *Server) adminUser(c *gin.Context) (*domain.User, bool) {
	user, err := s.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	if user.BrokerID != brokerIDFrom(c) {
		writeDomainError(c, domain.ErrNotFound)
		return nil, false
	}
	return user, true
}

func (s *Server) handleAdminGetUser(c *gin.Context) {
	user, ok := s.adminUser(c)
	if !ok {
		return
	}
	writeOK(c, http.StatusOK, userView(*user))
}

func (s *Server) handleAdminSetUserStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}
	status := domain.UserStatus(req.Status)
	if status != domain.UserActive && status != domain.UserSuspended {
		writeError(c, http.StatusBadRequest, "status must be active or suspended")
		return
	}
	user, ok := s.adminUser(c)
	if !ok {
		return
	}
	if err := s.users.UpdateStatus(c.Request.Context(), user.ID, status); err != nil {
		writeDomainError(c, err)
		return
	}
	if status == domain.UserSuspended {
		// Suspension takes effect immediately, not at next token expiry.
		if err := s.sessions.DeleteAllForUser(c.Request.Context(), user.ID); err != nil {
			writeDomainError(c, err)
			return
		}
	}
	s.audit(c, domain.AuditUserStatusChanged, "user", user.ID, map[string]any{"status": string(status)})
	writeOK(c, http.StatusOK, gin.H{"id": user.ID, "status": status})
}

func (s *Server) handleAdminResetUserPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "password is required")
		return
	}
	user, ok := s.adminUser(c)
	if !ok {
		return
	}
	if err := s.forceReset.Execute(c.Request.Context(), user.ID, req.Password); err != nil {
		writeDomainError(c, err)
		return
	}
	s.audit(c, domain.AuditUserPasswordForced, "user", user.ID, nil)
	writeOK(c, http.StatusOK, gin.H{"id": user.ID, "password_reset": true})
}

func (s *Server) handleAdminListPendingDocuments(c *gin.Context) {
	docs, err := s.kyc.ListPendingByBroker(c.Request.Context(), brokerIDFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, docs)
}

// handleAdminReviewDocument settles one pending document and, when it is the
// approval, flips the owner's verification status.
func (s *Server) handleAdminReviewDocument(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}
	status := domain.DocumentStatus(req.Status)
	if status != domain.DocApproved && status != domain.DocRejected {
		writeError(c, http.StatusBadRequest, "status must be approved or rejected")
		return
	}
	doc, err := s.kyc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if doc.BrokerID != brokerIDFrom(c) {
		writeDomainError(c, domain.ErrNotFound)
		return
	}
	if err := s.kyc.Review(c.Request.Context(), doc.ID, status, req.Note); err != nil {
		writeDomainError(c, err)
		return
	}
	userStatus := domain.KYCRejected
	if status == domain.DocApproved {
		userStatus = domain.KYCApproved
	}
	if err := s.users.UpdateKYCStatus(c.Request.Context(), doc.UserID, userStatus); err != nil {
		writeDomainError(c, err)
		return
	}
	s.audit(c, domain.AuditKYCReviewed, "kyc_document", doc.ID, map[string]any{"status": string(status)})
	writeOK(c, http.StatusOK, gin.H{"id": doc.ID, "status": status})
}

func (s *Server) handleAdminListTransactions(c *gin.Context) {
	status := domain.TransactionStatus(c.Query("status"))
	txs, err := s.transactions.ListByBroker(c.Request.Context(), brokerIDFrom(c), status)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, txs)
}

// handleAdminReviewTransaction settles a pending deposit or withdrawal. The
// balance moves only on approval: deposits credit, withdrawals debit.
func (s *Server) handleAdminReviewTransaction(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}
	status := domain.TransactionStatus(req.Status)
	if status != domain.TxApproved && status != domain.TxRejected {
		writeError(c, http.StatusBadRequest, "status must be approved or rejected")
		return
	}
	tx, err := s.transactions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if tx.BrokerID != brokerIDFrom(c) {
		writeDomainError(c, domain.ErrNotFound)
		return
	}
	if err := s.transactions.Review(c.Request.Context(), tx.ID, status, req.Note); err != nil {
		writeDomainError(c, err)
		return
	}
	if status == domain.TxApproved {
		delta := tx.Amount
		if tx.Kind == domain.TxWithdrawal {
			delta = -tx.Amount
		}
		if err := s.accounts.AdjustBalance(c.Request.Context(), tx.AccountID, delta); err != nil {
			writeDomainError(c, err)
			return
		}
	}
	s.audit(c, domain.AuditTransactionReview, "transaction", tx.ID, map[string]any{
		"status": string(status),
		"kind":   string(tx.Kind),
		"amount": tx.Amount,
	})
	writeOK(c, http.StatusOK, gin.H{"id": tx.ID, "status": status})
}

func (s *Server) handleAdminListAccounts(c *gin.Context) {
	accounts, err := s.accounts.ListByBroker(c.Request.Context(), brokerIDFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, accounts)
}

func (s *Server) handleAdminSetAccountStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}
	status := domain.AccountStatus(req.Status)
	if status != domain.AccountActive && status != domain.AccountDisabled {
		writeError(c, http.StatusBadRequest, "status must be active or disabled")
		return
	}
	account, err := s.accounts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if account.BrokerID != brokerIDFrom(c) {
		writeDomainError(c, domain.ErrNotFound)
		return
	}
	if err := s.accounts.UpdateStatus(c.Request.Context(), account.ID, status); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"id": account.ID, "status": status})
}

func (s *Server) handleAdminListTickets(c *gin.Context) {
	tickets, err := s.tickets.ListByBroker(c.Request.Context(), brokerIDFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, tickets)
}

func (s *Server) adminTicket(c *gin.Context) (*domain.Ticket, bool) {
	ticket, err := s.tickets.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	if ticket.BrokerID != brokerIDFrom(c) {
		writeDomainError(c, domain.ErrNotFound)
		return nil, false
	}
	return ticket, true
}

func (s *Server) handleAdminGetTicket(c *gin.Context) {
	ticket, ok := s.adminTicket(c)
	if !ok {
		return
	}
	replies, err := s.tickets.ListReplies(c.Request.Context(), ticket.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"ticket": ticket, "replies": replies})
}

func (s *Server) handleAdminReplyTicket(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "body is required")
		return
	}
	ticket, ok := s.adminTicket(c)
	if !ok {
		return
	}
	reply := &domain.TicketReply{
		TicketID:  ticket.ID,
		AuthorID:  principalFrom(c).UserID,
		Body:      req.Body,
		FromStaff: true,
	}
	if err := s.tickets.AddReply(c.Request.Context(), reply); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, reply)
}

func (s *Server) handleAdminCloseTicket(c *gin.Context) {
	ticket, ok := s.adminTicket(c)
	if !ok {
		return
	}
	if err := s.tickets.Close(c.Request.Context(), ticket.ID); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{"id": ticket.ID, "status": domain.TicketClosed})
}

// audit appends a trail entry for a staff action that already succeeded. An
// append failure is logged, not surfaced: the action is committed either way.
func (s *Server) audit(c *gin.Context, action, targetType, targetID string, detail map[string]any) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Record(c.Request.Context(), brokerIDFrom(c), principalFrom(c), action, targetType, targetID, detail)
	if err != nil {
		s.logger.Error("audit append failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Server) handleAdminListAuditEvents(c *gin.Context) {
	if s.auditLog == nil {
		writeOK(c, http.StatusOK, []domain.AuditEvent{})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := s.auditLog.ListByBroker(c.Request.Context(), brokerIDFrom(c), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, events)
}

func userView(user domain.User) gin.H {
	return gin.H{
		"id":                 user.ID,
		"email":              user.Email,
		"role":               user.Role,
		"status":             user.Status,
		"kyc_status":         user.KYCStatus,
		"two_factor_enabled": user.TwoFactorEnabled,
		"created_at":         user.CreatedAt,
	}
}
