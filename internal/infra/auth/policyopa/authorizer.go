package policyopa

import (
	"context"
	"errors"
	"fmt"

	"backoffice/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.backoffice.authz.allow"

// Authorizer evaluates role decisions against a rego bundle instead of the
// static allow-list. Deployments with per-broker permission overrides load a
// bundle; everyone else keeps the rbac authorizer.
type Authorizer struct {
	query rego.PreparedEvalQuery
}

type policyInput struct {
	Role    string   `json:"role"`
	Email   string   `json:"email"`
	Allowed []string `json:"allowed"`
}

func NewAuthorizerFromBundlePath(ctx context.Context, bundlePath string) (*Authorizer, error) {
	if bundlePath == "" {
		return nil, errors.New("policy bundle path is required")
	}
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{bundlePath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy bundle: %w", err)
	}
	return &Authorizer{query: prepared}, nil
}

func (a *Authorizer) Require(p domain.Principal, allowed ...domain.Role) error {
	if len(allowed) == 0 {
		return nil
	}
	roles := make([]string, len(allowed))
	for i, role := range allowed {
		roles[i] = string(role)
	}
	input := policyInput{
		Role:    string(p.Role),
		Email:   p.Email,
		Allowed: roles,
	}
	results, err := a.query.Eval(context.Background(), rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("evaluate authz policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.ErrForbidden
	}
	allow, ok := results[0].Expressions[0].Value.(bool)
	if !ok || !allow {
		return domain.ErrForbidden
	}
	return nil
}

var _ domain.RoleChecker = (*Authorizer)(nil)
