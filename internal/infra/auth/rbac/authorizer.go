package rbac

import (
	"fmt"

	"backoffice/internal/domain"
)

// AuthzError is a typed role-check rejection. It unwraps to ErrForbidden so
// the HTTP layer maps it to 403, never 401.
type AuthzError struct {
	Code    string
	Message string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthzError) Unwrap() error {
	return domain.ErrForbidden
}

func IsAuthzError(err error) (*AuthzError, bool) {
	authzErr, ok := err.(*AuthzError)
	return authzErr, ok
}

// Authorizer is the static role allow-list checker, the default RoleChecker
// when no policy bundle is configured.
type Authorizer struct{}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// Require allows any authenticated principal when the allow-list is empty,
// otherwise the principal's role must appear in it.
func (a *Authorizer) Require(p domain.Principal, allowed ...domain.Role) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if p.Role == role {
			return nil
		}
	}
	return &AuthzError{
		Code:    "MISSING_ROLE",
		Message: fmt.Sprintf("role %q is not permitted for this operation", p.Role),
	}
}

var _ domain.RoleChecker = (*Authorizer)(nil)
