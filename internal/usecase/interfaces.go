package usecase

import (
	"context"
	"time"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/store"
)

// UserRepository is the credential lookup used by authentication. A missing
// user is a *models.StoreError of kind NotFound; a taken email on Create is
// models.ErrDuplicateEmail.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id models.ObjectID) (*models.User, error)
}

type RevokedTokenRepository interface {
	Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// Stores holds one adapter per console collection.
type Stores struct {
	Users     store.Adapter[models.User]
	Agents    store.Adapter[models.Agent]
	Chatbots  store.Adapter[models.Chatbot]
	Tickets   store.Adapter[models.Ticket]
	APIKeys   store.Adapter[models.APIKey]
	AuditLogs store.Adapter[models.AuditLogEntry]
}
