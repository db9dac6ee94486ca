package usecase

import (
	"context"

	"backoffice/internal/domain"
)

// Gate is the single authorization entry point for every protected
// operation. It chains the token verifier, the session-store lookup, and an
// optional role allow-list; the first failure wins and nothing later runs.
//
// The two expiry tiers are deliberate: the token carries its own expiry, and
// the session row carries another that the server can delete at will.
// Logout, password change, and admin-forced resets revoke by deleting rows,
// which takes effect on the very next request regardless of how long the
// token itself would still be valid.
type Gate struct {
	Verifier domain.TokenVerifier
	Sessions domain.SessionStore
	Roles    domain.RoleChecker
}

// Authorize validates bearer and returns the acting principal. Errors:
// ErrInvalidToken (malformed or self-expired credential, no store access
// performed), ErrSessionRevoked (valid credential, no live session row),
// ErrForbidden (live session, role outside allowed). Store failures pass
// through untouched.
func (g *Gate) Authorize(ctx context.Context, bearer string, allowed ...domain.Role) (domain.Principal, error) {
	claims, err := g.Verifier.Verify(bearer)
	if err != nil {
		return domain.Principal{}, err
	}

	if _, err := g.Sessions.FindLive(ctx, bearer); err != nil {
		return domain.Principal{}, err
	}

	principal := domain.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if err := g.Roles.Require(principal, allowed...); err != nil {
		return domain.Principal{}, err
	}
	return principal, nil
}
