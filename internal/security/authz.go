package security

import "github.com/riptide-engine/riptide/internal/models"

// AuthContext is the caller identity and tenant scope an action executes
// under. Populated by the HTTP layer from request credentials.
type AuthContext struct {
	TenantID    string
	Permissions map[string]bool
}

// HasPermission reports whether the context's RBAC permission set grants
// perm.
func (a *AuthContext) HasPermission(perm string) bool {
	return a.Permissions[perm]
}

// Action describes one externally-originated operation subject to
// authorization (spec §4.10 step 1).
type Action struct {
	Name         string
	TenantID     string
	RequiredPerm string
}

// Policy is one authorization check; all configured policies must pass.
type Policy func(ctx *AuthContext, action Action) error

// TenantScopePolicy enforces that the payload's tenant id equals the
// context's tenant id (spec §4.10 invariant).
func TenantScopePolicy(ctx *AuthContext, action Action) error {
	if ctx.TenantID != action.TenantID {
		return models.NewError(models.KindPermissionDenied,
			"tenant scope mismatch: action targets a different tenant than the caller", nil)
	}
	return nil
}

// RBACPolicy enforces that the context holds the action's required
// permission.
func RBACPolicy(ctx *AuthContext, action Action) error {
	if action.RequiredPerm == "" {
		return nil
	}
	if !ctx.HasPermission(action.RequiredPerm) {
		return models.NewError(models.KindPermissionDenied,
			"missing required permission: "+action.RequiredPerm, nil)
	}
	return nil
}

// DefaultPolicies is the policy chain run for every action (spec §4.10
// step 1: "Run all authorization policies").
func DefaultPolicies() []Policy {
	return []Policy{TenantScopePolicy, RBACPolicy}
}

// Authorize runs every policy in order, stopping at the first failure.
func Authorize(ctx *AuthContext, action Action, policies []Policy) error {
	for _, p := range policies {
		if err := p(ctx, action); err != nil {
			return err
		}
	}
	return nil
}
