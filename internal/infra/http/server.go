package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/infra/cachemem"
	"backoffice/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BrokerDirectory is the tenant registry view the server needs: host
// resolution on every request, plus the superadmin management surface.
type BrokerDirectory interface {
	FindActiveByHostCandidate(ctx context.Context, candidate string) (*domain.Broker, error)
	Create(ctx context.Context, broker *domain.Broker) error
	GetByID(ctx context.Context, id string) (*domain.Broker, error)
	List(ctx context.Context) ([]domain.Broker, error)
	UpdateStatus(ctx context.Context, id string, status domain.BrokerStatus) error
}

type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	ListByBroker(ctx context.Context, brokerID string, roles ...domain.Role) ([]domain.User, error)
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error
	UpdateKYCStatus(ctx context.Context, id string, status domain.KYCStatus) error
}

type AccountStore interface {
	Create(ctx context.Context, account *domain.TradingAccount) error
	GetByID(ctx context.Context, id string) (*domain.TradingAccount, error)
	ListByUser(ctx context.Context, userID string) ([]domain.TradingAccount, error)
	ListByBroker(ctx context.Context, brokerID string) ([]domain.TradingAccount, error)
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
	AdjustBalance(ctx context.Context, id string, delta float64) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error)
	ListByBroker(ctx context.Context, brokerID string, status domain.TransactionStatus) ([]domain.Transaction, error)
	Review(ctx context.Context, id string, status domain.TransactionStatus, note string) error
}

type KYCStore interface {
	Create(ctx context.Context, doc *domain.KYCDocument) error
	GetByID(ctx context.Context, id string) (*domain.KYCDocument, error)
	ListByUser(ctx context.Context, userID string) ([]domain.KYCDocument, error)
	ListPendingByBroker(ctx context.Context, brokerID string) ([]domain.KYCDocument, error)
	Review(ctx context.Context, id string, status domain.DocumentStatus, note string) error
}

type TicketStore interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListByBroker(ctx context.Context, brokerID string) ([]domain.Ticket, error)
	AddReply(ctx context.Context, reply *domain.TicketReply) error
	ListReplies(ctx context.Context, ticketID string) ([]domain.TicketReply, error)
	Close(ctx context.Context, id string) error
}

// ServerDeps carries every collaborator the server wires into handlers.
type ServerDeps struct {
	Gate           *usecase.Gate
	Login          *usecase.Login
	Register       *usecase.Register
	ChangePassword *usecase.ChangePassword
	ForceReset     *usecase.ForcePasswordReset
	Forgot         *usecase.ForgotPassword
	Reset          *usecase.ResetPassword
	TwoFactor      *usecase.TwoFactorSetup

	Brokers      BrokerDirectory
	Users        UserDirectory
	Sessions     domain.SessionStore
	Accounts     AccountStore
	Transactions TransactionStore
	KYC          KYCStore
	Tickets      TicketStore

	Audit    *usecase.AuditEmitter
	AuditLog domain.AuditEventRepository

	RateLimiter domain.RateLimiter
	BrokerCache *cachemem.BrokerCache
	Logger      *zap.Logger
}

type Server struct {
	engine *gin.Engine
	logger *zap.Logger

	gate           *usecase.Gate
	login          *usecase.Login
	register       *usecase.Register
	changePassword *usecase.ChangePassword
	forceReset     *usecase.ForcePasswordReset
	forgot         *usecase.ForgotPassword
	reset          *usecase.ResetPassword
	twoFactor      *usecase.TwoFactorSetup

	brokers      BrokerDirectory
	users        UserDirectory
	sessions     domain.SessionStore
	accounts     AccountStore
	transactions TransactionStore
	kyc          KYCStore
	tickets      TicketStore

	auditor  *usecase.AuditEmitter
	auditLog domain.AuditEventRepository

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
	brokerCache       *cachemem.BrokerCache
	defaultBrokerSlug string
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:            logger,
		gate:              deps.Gate,
		login:             deps.Login,
		register:          deps.Register,
		changePassword:    deps.ChangePassword,
		forceReset:        deps.ForceReset,
		forgot:            deps.Forgot,
		reset:             deps.Reset,
		twoFactor:         deps.TwoFactor,
		brokers:           deps.Brokers,
		users:             deps.Users,
		sessions:          deps.Sessions,
		accounts:          deps.Accounts,
		transactions:      deps.Transactions,
		kyc:               deps.KYC,
		tickets:           deps.Tickets,
		auditor:           deps.Audit,
		auditLog:          deps.AuditLog,
		rateLimiter:       deps.RateLimiter,
		rateLimitRequests: cfg.RateLimit.Requests,
		rateLimitWindow:   cfg.RateLimit.Window,
		brokerCache:       deps.BrokerCache,
		defaultBrokerSlug: cfg.DefaultBrokerSlug,
	}
	s.engine = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		writeOK(c, http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	api.Use(s.resolveTenant())

	auth := api.Group("/auth", s.requireTenant())
	{
		// Credential endpoints carry the per-address limiter so a single
		// client cannot brute-force passwords or reset tokens.
		limited := auth.Group("", s.limitByClient())
		limited.POST("/register", s.handleRegister)
		limited.POST("/login", s.handleLogin)
		limited.POST("/login/2fa", s.handleLoginTwoFactor)
		limited.POST("/password/forgot", s.handleForgotPassword)
		limited.POST("/password/reset", s.handleResetPassword)

		session := auth.Group("", s.requireAuth())
		session.POST("/logout", s.handleLogout)
		session.GET("/me", s.handleMe)
		session.POST("/password/change", s.handleChangePassword)
		session.POST("/2fa/setup", s.handleTwoFactorSetup)
		session.POST("/2fa/enable", s.handleTwoFactorEnable)
		session.POST("/2fa/disable", s.handleTwoFactorDisable)
	}

	client := api.Group("/client", s.requireTenant(), s.requireAuth(domain.RoleClient))
	{
		client.GET("/accounts", s.handleClientListAccounts)
		client.POST("/accounts", s.handleClientOpenAccount)
		client.GET("/transactions", s.handleClientListTransactions)
		client.POST("/transactions", s.handleClientCreateTransaction)
		client.GET("/kyc/documents", s.handleClientListDocuments)
		client.POST("/kyc/documents", s.handleClientSubmitDocument)
		client.GET("/tickets", s.handleClientListTickets)
		client.POST("/tickets", s.handleClientOpenTicket)
		client.GET("/tickets/:id", s.handleClientGetTicket)
		client.POST("/tickets/:id/replies", s.handleClientReplyTicket)
	}

	admin := api.Group("/admin", s.requireTenant(), s.requireAuth(domain.RoleAdmin, domain.RoleSuperAdmin))
	{
		admin.GET("/users", s.handleAdminListUsers)
		admin.GET("/users/:id", s.handleAdminGetUser)
		admin.POST("/users/:id/status", s.handleAdminSetUserStatus)
		admin.POST("/users/:id/password", s.handleAdminResetUserPassword)
		admin.GET("/kyc/pending", s.handleAdminListPendingDocuments)
		admin.POST("/kyc/:id/review", s.handleAdminReviewDocument)
		admin.GET("/transactions", s.handleAdminListTransactions)
		admin.POST("/transactions/:id/review", s.handleAdminReviewTransaction)
		admin.GET("/accounts", s.handleAdminListAccounts)
		admin.POST("/accounts/:id/status", s.handleAdminSetAccountStatus)
		admin.GET("/tickets", s.handleAdminListTickets)
		admin.GET("/tickets/:id", s.handleAdminGetTicket)
		admin.POST("/tickets/:id/replies", s.handleAdminReplyTicket)
		admin.POST("/tickets/:id/close", s.handleAdminCloseTicket)
		admin.GET("/audit", s.handleAdminListAuditEvents)
	}

	superadmin := api.Group("/superadmin", s.requireAuth(domain.RoleSuperAdmin))
	{
		superadmin.GET("/brokers", s.handleListBrokers)
		superadmin.POST("/brokers", s.handleCreateBroker)
		superadmin.GET("/brokers/:id", s.handleGetBroker)
		superadmin.POST("/brokers/:id/status", s.handleSetBrokerStatus)
		superadmin.POST("/admins", s.handleCreateAdmin)
	}

	return engine
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(port int, timeout time.Duration) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.engine,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.logger.Info("http server listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("broker", c.GetString(ctxBrokerSlug)),
		)
	}
}
