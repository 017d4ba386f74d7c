package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
)

type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

func indexes() []indexSpec {
	return []indexSpec{
		{
			collection: "users",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_email").SetUnique(true),
			},
		},
		{
			collection: "agents",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "owner_id", Value: 1}},
				Options: options.Index().SetName("owner_id"),
			},
		},
		{
			collection: "chatbots",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "owner_email", Value: 1}},
				Options: options.Index().SetName("owner_email"),
			},
		},
		{
			collection: "apiKeys",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "owner_id", Value: 1}},
				Options: options.Index().SetName("owner_id"),
			},
		},
		{
			collection: "auditLogs",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("timestamp_desc"),
			},
		},
		{
			collection: revokedTokensCollection,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "token_hash", Value: 1}},
				Options: options.Index().SetName("uniq_token_hash").SetUnique(true),
			},
		},
		{
			collection: revokedTokensCollection,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
			},
		},
	}
}

// EnsureIndexes creates every index the repositories rely on. It is
// idempotent and runs on startup.
func EnsureIndexes(ctx context.Context, db *DB) error {
	start := time.Now()
	for _, idx := range indexes() {
		name, err := db.Database.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", idx.collection, err)
		}
		log.Debugw(ctx, "index ensured", "collection", idx.collection, "index", name)
	}
	log.Infow(ctx, "indexes ensured", "count", len(indexes()), "duration", time.Since(start).String())
	return nil
}
