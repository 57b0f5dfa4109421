package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-engine/riptide/internal/models"
)

func TestTenantScopePolicy_AllowsMatchingTenant(t *testing.T) {
	ctx := &AuthContext{TenantID: "tenant-a"}
	action := Action{Name: "get_trace", TenantID: "tenant-a"}
	assert.NoError(t, TenantScopePolicy(ctx, action))
}

func TestTenantScopePolicy_DeniesCrossTenant(t *testing.T) {
	ctx := &AuthContext{TenantID: "tenant-a"}
	action := Action{Name: "get_trace", TenantID: "tenant-b"}

	err := TenantScopePolicy(ctx, action)
	require.Error(t, err)
	var riptideErr *models.RiptideError
	require.ErrorAs(t, err, &riptideErr)
	assert.Equal(t, models.KindPermissionDenied, riptideErr.Kind)
}

func TestRBACPolicy_AllowsWhenNoPermissionRequired(t *testing.T) {
	ctx := &AuthContext{Permissions: map[string]bool{}}
	assert.NoError(t, RBACPolicy(ctx, Action{Name: "crawl"}))
}

func TestRBACPolicy_DeniesMissingPermission(t *testing.T) {
	ctx := &AuthContext{Permissions: map[string]bool{"read": true}}
	err := RBACPolicy(ctx, Action{Name: "crawl", RequiredPerm: "write"})
	require.Error(t, err)
}

func TestRBACPolicy_AllowsGrantedPermission(t *testing.T) {
	ctx := &AuthContext{Permissions: map[string]bool{"write": true}}
	assert.NoError(t, RBACPolicy(ctx, Action{Name: "crawl", RequiredPerm: "write"}))
}

func TestAuthorize_StopsAtFirstFailure(t *testing.T) {
	ctx := &AuthContext{TenantID: "tenant-a", Permissions: map[string]bool{}}
	action := Action{Name: "crawl", TenantID: "tenant-b", RequiredPerm: "write"}

	err := Authorize(ctx, action, DefaultPolicies())
	require.Error(t, err)
	var riptideErr *models.RiptideError
	require.ErrorAs(t, err, &riptideErr)
	assert.Equal(t, models.KindPermissionDenied, riptideErr.Kind)
}

func TestAuthorize_PassesWhenAllPoliciesSatisfied(t *testing.T) {
	ctx := &AuthContext{TenantID: "tenant-a", Permissions: map[string]bool{"write": true}}
	action := Action{Name: "crawl", TenantID: "tenant-a", RequiredPerm: "write"}

	assert.NoError(t, Authorize(ctx, action, DefaultPolicies()))
}

func TestHasPermission_FalseWhenUnset(t *testing.T) {
	ctx := &AuthContext{}
	assert.False(t, ctx.HasPermission("anything"))
}
