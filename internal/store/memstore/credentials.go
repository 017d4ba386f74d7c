package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
)

// Users is the credential view over a users Collection. Registrations made
// through it show up in the collection's watchers like any other write.
type Users struct {
	coll *Collection[models.User]
	mu   sync.Mutex
}

func NewUsers(coll *Collection[models.User]) *Users {
	return &Users{coll: coll}
}

func (u *Users) Create(ctx context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := u.find(ctx, func(x models.User) bool { return x.Email == user.Email }); err == nil {
		return models.ErrDuplicateEmail
	}
	id, err := u.coll.Create(ctx, *user)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	user.ID = models.ObjectID(id)
	user.Version = 1
	return nil
}

func (u *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return u.find(ctx, func(x models.User) bool { return x.Email == email })
}

func (u *Users) GetByID(ctx context.Context, id models.ObjectID) (*models.User, error) {
	return u.find(ctx, func(x models.User) bool { return x.ID == id })
}

func (u *Users) find(ctx context.Context, match func(models.User) bool) (*models.User, error) {
	list, err := u.coll.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, x := range list {
		if match(x) {
			return &x, nil
		}
	}
	return nil, models.NewStoreError(models.StoreNotFound, u.coll.Collection(), nil)
}

// RevokedTokens keeps logged-out token hashes until they expire.
type RevokedTokens struct {
	now func() time.Time

	mu     sync.Mutex
	hashes map[string]time.Time
}

func NewRevokedTokens(now func() time.Time) *RevokedTokens {
	if now == nil {
		now = time.Now
	}
	return &RevokedTokens{now: now, hashes: make(map[string]time.Time)}
}

func (r *RevokedTokens) Revoke(_ context.Context, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for h, exp := range r.hashes {
		if !exp.After(now) {
			delete(r.hashes, h)
		}
	}
	r.hashes[tokenHash] = expiresAt
	return nil
}

func (r *RevokedTokens) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.hashes[tokenHash]
	return ok, nil
}
