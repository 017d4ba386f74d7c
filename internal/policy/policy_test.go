package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
)

func TestQuotaFor(t *testing.T) {
	tests := []struct {
		name string
		tier models.Tier
		want Quota
	}{
		{
			name: "free",
			tier: models.TierFree,
			want: Quota{MaxChatbots: 1, MaxRequestsPerPeriod: 1000, MaxStorageBytes: 10 * MiB, MaxAPIKeys: 0},
		},
		{
			name: "pro",
			tier: models.TierPro,
			want: Quota{MaxChatbots: Unlimited, MaxRequestsPerPeriod: 100_000, MaxStorageBytes: GiB, MaxAPIKeys: Unlimited},
		},
		{
			name: "unknown tier gets zero quota",
			tier: models.Tier("enterprise"),
			want: Quota{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuotaFor(tt.tier))
		})
	}
}

func TestAllows(t *testing.T) {
	assert.True(t, Allows(1, 0))
	assert.False(t, Allows(1, 1))
	assert.False(t, Allows(0, 0))
	assert.True(t, Allows(Unlimited, 1<<40))
}

func TestCanPerformSuperAdminPassesEverything(t *testing.T) {
	for _, tier := range models.AllTiers {
		for _, res := range models.AllResources {
			for _, op := range models.AllOperations {
				assert.True(t, CanPerform(tier, models.RoleSuperAdmin, res, op), "%s %s %s", tier, res, op)
			}
		}
	}
}

func TestCanPerformAdminMatchesSuperAdminOutsideReservedSet(t *testing.T) {
	for _, tier := range models.AllTiers {
		for _, res := range models.AllResources {
			for _, op := range models.AllOperations {
				reserved := res == models.ResourceUser && op == models.OpDelete
				assert.Equal(t, !reserved, CanPerform(tier, models.RoleAdmin, res, op), "%s %s %s", tier, res, op)
			}
		}
	}
}

func TestCanPerformTierDoesNotChangeLegality(t *testing.T) {
	for _, role := range models.AllRoles {
		for _, res := range models.AllResources {
			for _, op := range models.AllOperations {
				assert.Equal(t,
					CanPerform(models.TierFree, role, res, op),
					CanPerform(models.TierPro, role, res, op),
					"%s %s %s", role, res, op)
			}
		}
	}
}

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name string
		role models.Role
		res  models.ResourceType
		op   models.Operation
		want bool
	}{
		{"user creates agent", models.RoleUser, models.ResourceAgent, models.OpCreate, true},
		{"user publishes agent", models.RoleUser, models.ResourceAgent, models.OpPublish, true},
		{"user creates chatbot", models.RoleUser, models.ResourceChatbot, models.OpCreate, true},
		{"user files ticket", models.RoleUser, models.ResourceTicket, models.OpCreate, true},
		{"user cannot resolve ticket", models.RoleUser, models.ResourceTicket, models.OpUpdate, false},
		{"user regenerates key", models.RoleUser, models.ResourceAPIKey, models.OpRegenerate, true},
		{"user cannot read users", models.RoleUser, models.ResourceUser, models.OpRead, false},
		{"user cannot read audit log", models.RoleUser, models.ResourceAuditLog, models.OpRead, false},
		{"admin resolves ticket", models.RoleAdmin, models.ResourceTicket, models.OpUpdate, true},
		{"admin updates user", models.RoleAdmin, models.ResourceUser, models.OpUpdate, true},
		{"admin cannot delete user", models.RoleAdmin, models.ResourceUser, models.OpDelete, false},
		{"admin regenerates any key", models.RoleAdmin, models.ResourceAPIKey, models.OpRegenerate, true},
		{"super admin deletes user", models.RoleSuperAdmin, models.ResourceUser, models.OpDelete, true},
		{"unknown role", models.Role("owner"), models.ResourceAgent, models.OpRead, false},
		{"unknown resource", models.RoleSuperAdmin, models.ResourceType("billing"), models.OpRead, false},
		{"unknown operation", models.RoleSuperAdmin, models.ResourceAgent, models.Operation("archive"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerform(models.TierFree, tt.role, tt.res, tt.op))
		})
	}
}

func TestCanPerformUnknownTier(t *testing.T) {
	assert.False(t, CanPerform(models.Tier(""), models.RoleSuperAdmin, models.ResourceAgent, models.OpRead))
}

func TestCanAssignRole(t *testing.T) {
	assert.True(t, CanAssignRole(models.RoleSuperAdmin))
	assert.False(t, CanAssignRole(models.RoleAdmin))
	assert.False(t, CanAssignRole(models.RoleUser))
}

func TestReadOnlyConfig(t *testing.T) {
	assert.False(t, ReadOnlyConfig(models.TierFree, 0))
	assert.True(t, ReadOnlyConfig(models.TierFree, 1))
	assert.False(t, ReadOnlyConfig(models.TierPro, 50))
	assert.True(t, ReadOnlyConfig(models.Tier("x"), 0))
}

func TestDashboardFor(t *testing.T) {
	assert.Equal(t, DashboardSuperAdmin, DashboardFor(models.RoleSuperAdmin, models.TierFree))
	assert.Equal(t, DashboardAdmin, DashboardFor(models.RoleAdmin, models.TierPro))
	assert.Equal(t, DashboardPro, DashboardFor(models.RoleUser, models.TierPro))
	assert.Equal(t, DashboardFree, DashboardFor(models.RoleUser, models.TierFree))
	assert.Equal(t, DashboardFree, DashboardFor(models.Role("?"), models.Tier("?")))
}
