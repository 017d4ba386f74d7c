// Package policy is the single entitlement table: which role may perform
// which operation on which resource, and how much each tier may hold.
// Every function is pure and total; unknown inputs get the most restrictive
// answer.
package policy

import "github.com/nguyentranbao-ct/agent-console/internal/models"

type opSet map[models.Operation]bool

func ops(list ...models.Operation) opSet {
	s := make(opSet, len(list))
	for _, op := range list {
		s[op] = true
	}
	return s
}

var userGrants = map[models.ResourceType]opSet{
	models.ResourceAgent:   ops(models.OpCreate, models.OpRead, models.OpUpdate, models.OpDelete, models.OpPublish),
	models.ResourceChatbot: ops(models.OpCreate, models.OpRead, models.OpUpdate, models.OpDelete),
	models.ResourceTicket:  ops(models.OpCreate, models.OpRead),
	models.ResourceAPIKey:  ops(models.OpCreate, models.OpRead, models.OpUpdate, models.OpDelete, models.OpRegenerate),
}

// superAdminOnly operations are withheld from admins. Role changes are
// gated separately by CanAssignRole.
var superAdminOnly = map[models.ResourceType]opSet{
	models.ResourceUser: ops(models.OpDelete),
}

// CanPerform decides operation legality. Tier never changes the answer for
// known inputs; it only has to be a known tier.
func CanPerform(tier models.Tier, role models.Role, resource models.ResourceType, op models.Operation) bool {
	if !tier.Valid() || !role.Valid() || !resource.Valid() || !op.Valid() {
		return false
	}
	switch role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleAdmin:
		return !superAdminOnly[resource][op]
	case models.RoleUser:
		return userGrants[resource][op]
	}
	return false
}

// CanAssignRole reports whether actorRole may change another user's role.
func CanAssignRole(actorRole models.Role) bool {
	return actorRole == models.RoleSuperAdmin
}

// Dashboard names the presenter an actor gets.
type Dashboard string

const (
	DashboardFree       Dashboard = "free"
	DashboardPro        Dashboard = "pro"
	DashboardAdmin      Dashboard = "admin"
	DashboardSuperAdmin Dashboard = "super_admin"
)

// DashboardFor picks the dashboard by role first, then tier.
func DashboardFor(role models.Role, tier models.Tier) Dashboard {
	switch {
	case role == models.RoleSuperAdmin:
		return DashboardSuperAdmin
	case role == models.RoleAdmin:
		return DashboardAdmin
	case tier == models.TierPro:
		return DashboardPro
	}
	return DashboardFree
}
