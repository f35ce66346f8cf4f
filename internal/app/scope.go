package app

import (
	"strings"

	"tenant-quiz-service/internal/domain"
)

// Credentials are the opaque tokens presented with a request.
type Credentials struct {
	AdminToken string
	UserToken  string
}

// Scope is the effective tenant identity of a request.
type Scope struct {
	TenantTag     string
	Admin         bool
	LegacyVisible bool
	PublishedOnly bool
	// AllTenants unlocks the cross-tenant reporting view for super admins.
	AllTenants bool
}

// TemplateQuery converts the scope into the tenant filter used on template reads.
func (s Scope) TemplateQuery() domain.TenantQuery {
	return domain.TenantQuery{
		TenantTag:     s.TenantTag,
		IncludeLegacy: s.LegacyVisible,
		PublishedOnly: s.PublishedOnly,
	}
}

func (s Scope) requireTenant() error {
	if s.TenantTag == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

func (s Scope) requireAdmin() error {
	if s.TenantTag == "" || !s.Admin {
		return domain.ErrUnauthorized
	}
	return nil
}

// ScopeResolver derives scopes from credentials.
type ScopeResolver struct {
	superTokens map[string]struct{}
}

func NewScopeResolver(superTokens []string) *ScopeResolver {
	set := make(map[string]struct{}, len(superTokens))
	for _, tok := range superTokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			set[tok] = struct{}{}
		}
	}
	return &ScopeResolver{superTokens: set}
}

// Resolve returns the scope for a tenant-scoped operation. The admin token
// takes precedence when both are present.
func (r *ScopeResolver) Resolve(c Credentials) (Scope, error) {
	admin := strings.TrimSpace(c.AdminToken)
	user := strings.TrimSpace(c.UserToken)
	switch {
	case admin != "":
		_, super := r.superTokens[admin]
		return Scope{TenantTag: admin, Admin: true, LegacyVisible: true, AllTenants: super}, nil
	case user != "":
		return Scope{TenantTag: user, LegacyVisible: true, PublishedOnly: true}, nil
	default:
		return Scope{}, domain.ErrUnauthorized
	}
}

// Optional resolves a scope without requiring credentials; anonymous
// callers get the zero Scope.
func (r *ScopeResolver) Optional(c Credentials) Scope {
	scope, err := r.Resolve(c)
	if err != nil {
		return Scope{}
	}
	return scope
}
