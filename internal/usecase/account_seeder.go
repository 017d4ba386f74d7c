package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
)

// SeedAccount is one entry of the seed file.
type SeedAccount struct {
	Email    string      `yaml:"email" validate:"required,email"`
	Password string      `yaml:"password" validate:"required,max=72"`
	Name     string      `yaml:"name"`
	Role     models.Role `yaml:"role" validate:"oneof=user admin super_admin"`
	Tier     models.Tier `yaml:"tier" validate:"oneof=free pro"`
}

// SeedAccountsFile loads path and seeds its accounts. An empty path is a no-op.
func (uc *AuthUsecase) SeedAccountsFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return uc.SeedAccounts(ctx, data)
}

// SeedAccounts creates every account in the YAML list that does not exist
// yet. Existing accounts are left untouched, passwords included.
func (uc *AuthUsecase) SeedAccounts(ctx context.Context, data []byte) error {
	var accounts []SeedAccount
	if err := yaml.Unmarshal(data, &accounts); err != nil {
		return fmt.Errorf("unmarshal seed accounts: %w", err)
	}
	log.Debugw(ctx, "loaded seed accounts", "count", len(accounts))

	for _, acc := range accounts {
		if acc.Role == "" {
			acc.Role = models.RoleUser
		}
		if acc.Tier == "" {
			acc.Tier = models.TierFree
		}
		if err := uc.validator.Record(acc); err != nil {
			return fmt.Errorf("seed account %q: %w", acc.Email, err)
		}

		_, err := uc.users.GetByEmail(ctx, acc.Email)
		if err == nil {
			log.Debugw(ctx, "seed account already exists", "email", acc.Email)
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("check seed account %q: %w", acc.Email, err)
		}

		if _, err := uc.createUser(ctx, acc.Email, acc.Password, acc.Name, acc.Role, acc.Tier); err != nil {
			return fmt.Errorf("create seed account %q: %w", acc.Email, err)
		}
		log.Infow(ctx, "created seed account", "email", acc.Email, "role", acc.Role)
	}
	return nil
}
