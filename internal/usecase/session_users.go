package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/nguyentranbao-ct/agent-console/internal/mirror"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/policy"
)

// UpdateUser changes another account's name, status or tier. Admins may
// not touch super admin accounts.
func (s *Session) UpdateUser(ctx context.Context, id string, in models.UserUpdate) error {
	if err := s.validate(in); err != nil {
		return err
	}
	c, target, err := s.targetUser(id, models.OpUpdate)
	if err != nil {
		return err
	}
	if target.Role == models.RoleSuperAdmin && s.actor.Role != models.RoleSuperAdmin {
		return models.Denied(models.ResourceUser, models.OpUpdate, "super admin accounts are managed by super admins")
	}
	if target.ID == s.actor.UserID && in.Status != nil && *in.Status == models.UserSuspended {
		return models.Denied(models.ResourceUser, models.OpUpdate, "cannot suspend yourself")
	}

	_, err = c.Update(ctx, id, models.UserPatch{
		Name:      in.Name,
		Status:    in.Status,
		Tier:      in.Tier,
		UpdatedAt: s.uc.now().UTC(),
	})
	if err != nil {
		return err
	}
	s.audit(ctx, models.AuditUserUpdated, fmt.Sprintf("%s: %s", target.Email, describeUserUpdate(in)))
	return nil
}

// AssignRole changes another account's role. Only super admins may.
func (s *Session) AssignRole(ctx context.Context, id string, in models.RoleAssignment) error {
	if err := s.validate(in); err != nil {
		return err
	}
	if !policy.CanAssignRole(s.actor.Role) {
		return models.Denied(models.ResourceUser, models.OpUpdate, "only super admins assign roles")
	}
	c, target, err := s.targetUser(id, models.OpUpdate)
	if err != nil {
		return err
	}
	if target.ID == s.actor.UserID {
		return models.Denied(models.ResourceUser, models.OpUpdate, "cannot change your own role")
	}
	if target.Role == in.Role {
		return nil
	}

	_, err = c.Update(ctx, id, models.UserPatch{Role: &in.Role, UpdatedAt: s.uc.now().UTC()})
	if err != nil {
		return err
	}
	s.audit(ctx, models.AuditRoleAssigned, fmt.Sprintf("%s: %s -> %s", target.Email, target.Role, in.Role))
	return nil
}

func (s *Session) DeleteUser(ctx context.Context, id string) error {
	c, target, err := s.targetUser(id, models.OpDelete)
	if err != nil {
		return err
	}
	if target.ID == s.actor.UserID {
		return models.Denied(models.ResourceUser, models.OpDelete, "cannot delete yourself")
	}
	if err := c.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, models.AuditUserDeleted, target.Email)
	return nil
}

func (s *Session) targetUser(id string, op models.Operation) (*mirror.Controller[models.User], models.User, error) {
	if err := s.authorize(models.ResourceUser, op); err != nil {
		return nil, models.User{}, err
	}
	c, err := s.userController()
	if err != nil {
		return nil, models.User{}, err
	}
	u, ok := c.Get(id)
	if !ok {
		return nil, models.User{}, s.notFound(s.uc.stores.Users.Collection(), id)
	}
	return c, u, nil
}

func describeUserUpdate(in models.UserUpdate) string {
	var parts []string
	if in.Name != nil {
		parts = append(parts, "name="+*in.Name)
	}
	if in.Status != nil {
		parts = append(parts, "status="+string(*in.Status))
	}
	if in.Tier != nil {
		parts = append(parts, "tier="+string(*in.Tier))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}
