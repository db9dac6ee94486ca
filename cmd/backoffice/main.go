package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/infra/auth/policyopa"
	"backoffice/internal/infra/auth/rbac"
	"backoffice/internal/infra/cachemem"
	"backoffice/internal/infra/db"
	httpserver "backoffice/internal/infra/http"
	"backoffice/internal/infra/ratelimit"
	"backoffice/internal/infra/secrets"
	"backoffice/internal/infra/security"
	"backoffice/internal/infra/tokens"
	"backoffice/internal/infra/twofactor"
	"backoffice/internal/logger"
	"backoffice/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "backoffice: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.MustLoad()

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	limiter, err := buildLimiter(cfg)
	if err != nil {
		return fmt.Errorf("build rate limiter: %w", err)
	}

	roles, err := buildRoleChecker(cfg)
	if err != nil {
		return fmt.Errorf("build role checker: %w", err)
	}

	tokenSecret, err := secrets.Resolve(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("resolve token secret: %w", err)
	}

	provider := tokens.NewProvider(tokenSecret, cfg.TokenTTL, cfg.TwoFactorTokenTTL, cfg.PasswordResetTTL)
	hasher := security.NewHasher(cfg.BcryptCost)
	totp := twofactor.NewService("backoffice")

	brokers := db.NewBrokerRepository(conn)
	users := db.NewUserRepository(conn)
	sessions := db.NewSessionRepository(conn)
	accounts := db.NewTradingAccountRepository(conn)
	transactions := db.NewTransactionRepository(conn)
	kycDocs := db.NewKYCDocumentRepository(conn)
	tickets := db.NewTicketRepository(conn)
	auditLog := db.NewAuditEventRepository(conn)

	server := httpserver.NewServerWithDeps(*cfg, httpserver.ServerDeps{
		Gate: &usecase.Gate{Verifier: provider, Sessions: sessions, Roles: roles},
		Login: &usecase.Login{
			Users:     users,
			Sessions:  sessions,
			Tokens:    provider,
			Hasher:    hasher,
			TwoFactor: totp,
		},
		Register:       &usecase.Register{Users: users, Hasher: hasher},
		ChangePassword: &usecase.ChangePassword{Users: users, Sessions: sessions, Hasher: hasher},
		ForceReset:     &usecase.ForcePasswordReset{Users: users, Sessions: sessions, Hasher: hasher},
		Forgot:         &usecase.ForgotPassword{Users: users, Tokens: provider},
		Reset:          &usecase.ResetPassword{Users: users, Sessions: sessions, Tokens: provider, Hasher: hasher},
		TwoFactor: &usecase.TwoFactorSetup{
			Users:     users,
			Secrets:   totp,
			TwoFactor: totp,
			Hasher:    hasher,
			NewCodes:  twofactor.NewBackupCodes,
		},
		Brokers:      brokers,
		Users:        users,
		Sessions:     sessions,
		Accounts:     accounts,
		Transactions: transactions,
		KYC:          kycDocs,
		Tickets:      tickets,
		Audit:        usecase.NewAuditEmitter(auditLog),
		AuditLog:     auditLog,
		RateLimiter:  limiter,
		BrokerCache:  cachemem.NewBrokerCache(time.Minute),
		Logger:       log,
	})

	log.Info("starting backoffice",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.HTTP.Port),
		zap.String("rate_limit_backend", cfg.RateLimit.Backend),
	)
	return server.Run(cfg.HTTP.Port, cfg.HTTP.Timeout)
}

func buildLimiter(cfg *config.Config) (domain.RateLimiter, error) {
	switch cfg.RateLimit.Backend {
	case "redis":
		return ratelimit.NewRedisLimiter(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB, time.Now)
	case "memory", "":
		return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{}), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}

func buildRoleChecker(cfg *config.Config) (domain.RoleChecker, error) {
	if cfg.PolicyBundlePath != "" {
		return policyopa.NewAuthorizerFromBundlePath(context.Background(), cfg.PolicyBundlePath)
	}
	return rbac.NewAuthorizer(), nil
}
