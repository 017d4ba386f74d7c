package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	Hosts      []string `env:"HOSTS" envDefault:"localhost:27017"`
	Direct     bool     `env:"DIRECT" envDefault:"false"`
	ReplicaSet string   `env:"REPLICA_SET" envDefault:"rs0"`
	Username   string   `env:"USERNAME"`
	Password   string   `env:"PASSWORD"`
	AuthDB     string   `env:"AUTH_DB" envDefault:"admin"`
	Database   string   `env:"DATABASE" envDefault:"agent_console"`
}

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewConnection connects lazily; Ping verifies the deployment is reachable.
// Change streams need a replica set, so Direct is only for single-node dev setups
// that still run as a one-member set.
func NewConnection(ctx context.Context, cfg Config) (*DB, error) {
	opts := options.Client().
		SetAppName("agent-console").
		SetHosts(cfg.Hosts).
		SetDirect(cfg.Direct).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetTimeout(10 * time.Second)

	if cfg.ReplicaSet != "" && !cfg.Direct {
		opts.SetReplicaSet(cfg.ReplicaSet)
	}

	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			AuthSource: cfg.AuthDB,
			Username:   cfg.Username,
			Password:   cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	return &DB{
		Client:   client,
		Database: client.Database(cfg.Database),
	}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}
