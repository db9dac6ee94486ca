package domain

type Role string

const (
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
	RolePartner    Role = "partner"
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether r is one of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RolePartner, RoleSuperAdmin:
		return true
	}
	return false
}

// TokenClaims is the identity embedded in a bearer token: subject id, email,
// role. Extracted by the token verifier without any store access.
type TokenClaims struct {
	UserID string
	Email  string
	Role   Role
}

// TokenVerifier validates a bearer string's signature and embedded expiry.
// It must fail with ErrInvalidToken before any data-store round trip.
type TokenVerifier interface {
	Verify(token string) (TokenClaims, error)
}

// Principal is the identity an authorized request acts as. It is produced by
// the authorization gate and consumed by handlers for tenant-scoped queries.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// RoleChecker compares a principal's role against a caller-supplied
// allow-list. An empty list allows any authenticated principal. Failures
// must unwrap to ErrForbidden, never ErrUnauthorized.
type RoleChecker interface {
	Require(p Principal, allowed ...Role) error
}
