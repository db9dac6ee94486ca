package tokens

import (
	"time"

	"backoffice/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	purposeSession   = "session"
	purposeTwoFactor = "2fa"
	purposeReset     = "reset"
)

type jwtClaims struct {
	UserID  string      `json:"uid"`
	Email   string      `json:"email"`
	Role    domain.Role `json:"role"`
	Purpose string      `json:"purpose"`
	jwt.RegisteredClaims
}

// Provider mints and verifies bearer tokens. Verification is self-contained:
// signature and embedded expiry only, no store access. The session-row check
// is the gate's job and runs after this.
type Provider struct {
	secret       []byte
	sessionTTL   time.Duration
	twoFactorTTL time.Duration
	resetTTL     time.Duration
	now          func() time.Time
}

func NewProvider(secret string, sessionTTL, twoFactorTTL, resetTTL time.Duration) *Provider {
	return &Provider{
		secret:       []byte(secret),
		sessionTTL:   sessionTTL,
		twoFactorTTL: twoFactorTTL,
		resetTTL:     resetTTL,
		now:          time.Now,
	}
}

// WithClock overrides the token clock. Tests only.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

func (p *Provider) SessionTTL() time.Duration {
	return p.sessionTTL
}

// IssueSession mints the bearer token recorded in the sessions table.
func (p *Provider) IssueSession(user domain.User) (token string, expiresAt time.Time, err error) {
	return p.issue(user, purposeSession, p.sessionTTL)
}

// IssueTwoFactor mints the short-lived intermediate token handed back by
// login when 2FA is enabled. It carries no session row and cannot pass the
// authorization gate.
func (p *Provider) IssueTwoFactor(user domain.User) (token string, expiresAt time.Time, err error) {
	return p.issue(user, purposeTwoFactor, p.twoFactorTTL)
}

func (p *Provider) issue(user domain.User, purpose string, ttl time.Duration) (string, time.Time, error) {
	now := p.now().UTC()
	expiresAt := now.Add(ttl)
	claims := jwtClaims{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify rejects absent, malformed, unsigned, or self-expired session tokens
// with domain.ErrInvalidToken and returns the embedded identity claims
// otherwise.
func (p *Provider) Verify(token string) (domain.TokenClaims, error) {
	return p.parse(token, purposeSession)
}

// VerifyTwoFactor validates an intermediate 2FA token.
func (p *Provider) VerifyTwoFactor(token string) (domain.TokenClaims, error) {
	return p.parse(token, purposeTwoFactor)
}

// IssuePasswordReset mints the token embedded in a password-reset link.
func (p *Provider) IssuePasswordReset(user domain.User) (token string, expiresAt time.Time, err error) {
	return p.issue(user, purposeReset, p.resetTTL)
}

// VerifyPasswordReset validates a password-reset token.
func (p *Provider) VerifyPasswordReset(token string) (domain.TokenClaims, error) {
	return p.parse(token, purposeReset)
}

func (p *Provider) parse(token, purpose string) (domain.TokenClaims, error) {
	if token == "" {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !parsed.Valid {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}
	return domain.TokenClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

var _ domain.TokenVerifier = (*Provider)(nil)
