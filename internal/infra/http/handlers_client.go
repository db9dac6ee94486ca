package http

import (
	"net/http"

	"backoffice/internal/domain"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleClientListAccounts(c *gin.Context) {
	accounts, err := s.accounts.ListByUser(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, accounts)
}

func (s *Server) handleClientOpenAccount(c *gin.Context) {
	var req struct {
		Platform string `json:"platform" binding:"required"`
		Leverage int    `json:"leverage"`
		Currency string `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "platform is required")
		return
	}
	if req.Leverage <= 0 {
		req.Leverage = 100
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	account := &domain.TradingAccount{
		BrokerID: brokerIDFrom(c),
		UserID:   principalFrom(c).UserID,
		Platform: req.Platform,
		Leverage: req.Leverage,
		Currency: req.Currency,
	}
	if err := s.accounts.Create(c.Request.Context(), account); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, account)
}

func (s *Server) handleClientListTransactions(c *gin.Context) {
	txs, err := s.transactions.ListByUser(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, txs)
}

// handleClientCreateTransaction files a deposit or withdrawal request
// against one of the caller's own accounts. Withdrawals additionally require
// approved KYC.
func (s *Server) handleClientCreateTransaction(c *gin.Context) {
	var req struct {
		AccountID string  `json:"account_id" binding:"required"`
		Kind      string  `json:"kind" binding:"required"`
		Amount    float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "account_id, kind and amount are required")
		return
	}
	kind := domain.TransactionKind(req.Kind)
	if kind != domain.TxDeposit && kind != domain.TxWithdrawal {
		writeError(c, http.StatusBadRequest, "kind must be deposit or withdrawal")
		return
	}
	if req.Amount <= 0 {
		writeError(c, http.StatusBadRequest, "amount must be positive")
		return
	}
	principal := principalFrom(c)

	account, err := s.accounts.GetByID(c.Request.Context(), req.AccountID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if account.UserID != principal.UserID || account.BrokerID != brokerIDFrom(c) {
		writeDomainError(c, domain.ErrNotFound)
		return
	}
	if kind == domain.TxWithdrawal {
		user, err := s.users.FindByID(c.Request.Context(), principal.UserID)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		if user.KYCStatus != domain.KYCApproved {
			writeError(c, http.StatusForbidden, "withdrawals require approved identity verification")
			return
		}
		if account.Balance < req.Amount {
			writeError(c, http.StatusBadRequest, "insufficient balance")
			return
		}
	}
	tx := &domain.Transaction{
		BrokerID:  brokerIDFrom(c),
		UserID:    principal.UserID,
		AccountID: account.ID,
		Kind:      kind,
		Amount:    req.Amount,
		Currency:  account.Currency,
	}
	if err := s.transactions.Create(c.Request.Context(), tx); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, tx)
}

func (s *Server) handleClientListDocuments(c *gin.Context) {
	docs, err := s.kyc.ListByUser(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, docs)
}

func (s *Server) handleClientSubmitDocument(c *gin.Context) {
	var req struct {
		Kind    string `json:"kind" binding:"required"`
		FileURI string `json:"file_uri" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "kind and file_uri are required")
		return
	}
	doc := &domain.KYCDocument{
		BrokerID: brokerIDFrom(c),
		UserID:   principalFrom(c).UserID,
		Kind:     req.Kind,
		FileURI:  req.FileURI,
	}
	if err := s.kyc.Create(c.Request.Context(), doc); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, doc)
}

func (s *Server) handleClientListTickets(c *gin.Context) {
	tickets, err := s.tickets.ListByUser(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusOK, tickets)
}

func (s *Server) handleClientOpenTicket(c *gin.Context) {
	var req struct {
		Subject string `json:"subject" binding:"required"`
		Body    string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "subject and body are required")
		return
	}
	ticket := &domain.Ticket{
		BrokerID: brokerIDFrom(c),
		UserID:   principalFrom(c).UserID,
		Subject:  req.Subject,
		Body:     req.Body,
	}
	if err := s.tickets.Create(c.Request.Context(), ticket); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, ticket)
}

// clientTicket loads a ticket and enforces ownership. A foreign ticket is
// reported as not found rather than forbidden so ids cannot be probed.
func (s *Server) clientTicket(c *gin.Context) (*domain.Ticket, bool) {
	ticket, err := s.tickets.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	if ticket.UserID != principalFrom(c).UserID || ticket.BrokerID != brokerIDFrom(c) {
		writeDomainError(c, domain.ErrNotFound)
		return nil, false
	}
	return ticket, true
}

func (s *Server) handleClientGetTicket(c *gin.Context) {
	ticket, ok := s.clientTicket(c)
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

func (s *Server) handleClientReplyTicket(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "body is required")
		return
	}
	ticket, ok := s.clientTicket(c)
	if !ok {
		return
	}
	reply := &domain.TicketReply{
		TicketID: ticket.ID,
		AuthorID: principalFrom(c).UserID,
		Body:     req.Body,
	}
	if err := s.tickets.AddReply(c.Request.Context(), reply); err != nil {
		writeDomainError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, reply)
}
