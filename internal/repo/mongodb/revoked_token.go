package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
)

const revokedTokensCollection = "revokedTokens"

// RevokedTokenRepository stores hashes of logged-out tokens. A TTL index on
// expires_at purges entries once the token would have expired anyway.
type RevokedTokenRepository struct {
	collection *mongo.Collection
}

func NewRevokedTokenRepository(db *DB) *RevokedTokenRepository {
	return &RevokedTokenRepository{
		collection: db.Database.Collection(revokedTokensCollection),
	}
}

func (r *RevokedTokenRepository) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"token_hash": tokenHash},
		bson.M{"$setOnInsert": models.RevokedToken{
			ID:        models.NewObjectID(),
			TokenHash: tokenHash,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return storeError(revokedTokensCollection, fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{"token_hash": tokenHash},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, storeError(revokedTokensCollection, fmt.Errorf("find revoked token: %w", err))
	}
	return true, nil
}
