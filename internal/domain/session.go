package domain

import (
	"context"
	"time"
)

// Session is the server-side record of one live login. A bearer token grants
// access only while a matching, unexpired session row exists; deleting the
// row revokes access regardless of the token's own embedded expiry.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionStore is the persisted-session lookup the authorization gate runs
// after token verification. FindLive must return ErrSessionRevoked when no
// row matches the token with an expiry in the future; store failures
// propagate untouched so infrastructure errors are not masked as auth
// failures.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	FindLive(ctx context.Context, token string) (*Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}
