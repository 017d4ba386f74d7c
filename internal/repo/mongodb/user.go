package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
)

// UserRepository backs the credential service. It shares the users
// collection with the console's user adapter.
type UserRepository struct {
	base *baseRepo[models.User]
}

func NewUserRepository(db *DB, v *validate.Validator) *UserRepository {
	return &UserRepository{base: newBaseRepo(db, v, Codec[models.User]{})}
}

// Create inserts user and fills in its id. A unique index on email turns a
// second registration into models.ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	id, err := r.base.Create(ctx, *user)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	user.ID = models.ObjectID(id)
	user.Version = 1
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.base.FindOne(ctx, bson.M{"email": normalizeEmail(email)})
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id models.ObjectID) (*models.User, error) {
	if !id.Valid() {
		return nil, models.NewStoreError(models.StoreNotFound, r.base.name, fmt.Errorf("id %q", id))
	}
	user, err := r.base.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
