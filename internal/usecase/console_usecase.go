package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/agent-console/internal/llm"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/usage"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
	"github.com/nguyentranbao-ct/agent-console/pkg/ctxval"
)

// ConsoleUsecase opens sessions: an authenticated actor bound to the
// collection mirrors and policy it acts through.
type ConsoleUsecase struct {
	stores    Stores
	users     UserRepository
	audit     *AuditUsecase
	meter     usage.Meter
	locks     usage.Locker
	runner    llm.Runner
	validator *validate.Validator
	now       func() time.Time
}

func NewConsoleUsecase(
	stores Stores,
	users UserRepository,
	audit *AuditUsecase,
	meter usage.Meter,
	locks usage.Locker,
	runner llm.Runner,
	v *validate.Validator,
) *ConsoleUsecase {
	return &ConsoleUsecase{
		stores:    stores,
		users:     users,
		audit:     audit,
		meter:     meter,
		locks:     locks,
		runner:    runner,
		validator: v,
		now:       time.Now,
	}
}

func (uc *ConsoleUsecase) WithClock(now func() time.Time) *ConsoleUsecase {
	uc.now = now
	return uc
}

// Open loads the current account behind claims. Role and tier come from
// the stored user, not the token, so a change applies on the next request.
// The session lives until Close or until ctx ends.
func (uc *ConsoleUsecase) Open(ctx context.Context, claims *models.Claims) (*Session, error) {
	user, err := uc.users.GetByID(ctx, claims.UserID())
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewAuthError(models.AuthInvalid, errors.New("account no longer exists"))
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if user.Status == models.UserSuspended {
		return nil, models.ErrAccountSuspended
	}

	actor := user.Actor()
	ctxval.AddFields(ctx, "user_id", string(actor.UserID), "role", string(actor.Role))
	return newSession(ctx, uc, actor), nil
}
