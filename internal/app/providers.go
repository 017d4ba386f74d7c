package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/agent-console/internal/config"
	"github.com/nguyentranbao-ct/agent-console/internal/kafka"
	"github.com/nguyentranbao-ct/agent-console/internal/llm"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/agent-console/internal/store/memstore"
	"github.com/nguyentranbao-ct/agent-console/internal/usage"
	"github.com/nguyentranbao-ct/agent-console/internal/usecase"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
	"github.com/nguyentranbao-ct/agent-console/pkg/crypto"
	"github.com/nguyentranbao-ct/agent-console/pkg/logger"
)

// Storage is everything the usecases read and write, backed by one driver.
type Storage struct {
	fx.Out

	Stores usecase.Stores
	Users  usecase.UserRepository
	Tokens usecase.RevokedTokenRepository
}

func newSealer(conf *config.Config) (crypto.Sealer, error) {
	return crypto.NewSealer(conf.Crypto.EncryptionKey)
}

func newStorage(lc fx.Lifecycle, conf *config.Config, v *validate.Validator, sealer crypto.Sealer) (Storage, error) {
	switch conf.Database.Driver {
	case config.DriverMemory:
		logger.MustNamed("app").Warnw("using in-memory storage, data is lost on restart")
		return newMemoryStorage(), nil
	default:
		return newMongoStorage(lc, conf, v, sealer)
	}
}

func newMemoryStorage() Storage {
	users := memstore.New[models.User]("users")
	return Storage{
		Stores: usecase.Stores{
			Users:     users,
			Agents:    memstore.New[models.Agent]("agents"),
			Chatbots:  memstore.New[models.Chatbot]("chatbots"),
			Tickets:   memstore.New[models.Ticket]("tickets"),
			APIKeys:   memstore.New[models.APIKey]("apiKeys"),
			AuditLogs: memstore.New[models.AuditLogEntry]("auditLogs"),
		},
		Users:  memstore.NewUsers(users),
		Tokens: memstore.NewRevokedTokens(nil),
	}
}

func newMongoStorage(lc fx.Lifecycle, conf *config.Config, v *validate.Validator, sealer crypto.Sealer) (Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := mongodb.NewConnection(ctx, conf.Database.Config)
	if err != nil {
		return Storage{}, fmt.Errorf("init mongo client: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Ping(ctx); err != nil {
				return err
			}
			return mongodb.EnsureIndexes(ctx, db)
		},
		OnStop: func(ctx context.Context) error {
			return db.Close(ctx)
		},
	})

	return Storage{
		Stores: usecase.Stores{
			Users:     mongodb.NewAdapter(db, v, mongodb.Codec[models.User]{}),
			Agents:    mongodb.NewAdapter(db, v, mongodb.Codec[models.Agent]{}),
			Chatbots:  mongodb.NewAdapter(db, v, mongodb.Codec[models.Chatbot]{}),
			Tickets:   mongodb.NewAdapter(db, v, mongodb.Codec[models.Ticket]{}),
			APIKeys:   mongodb.NewAdapter(db, v, mongodb.APIKeyCodec(sealer)),
			AuditLogs: mongodb.NewAdapter(db, v, mongodb.Codec[models.AuditLogEntry]{}),
		},
		Users:  mongodb.NewUserRepository(db, v),
		Tokens: mongodb.NewRevokedTokenRepository(db),
	}, nil
}

func newPublisher(lc fx.Lifecycle, conf *config.Config) (kafka.Publisher, error) {
	p, err := kafka.NewPublisher(conf.Kafka)
	if err != nil {
		return nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
	return p, nil
}

// Usage is the request meter and the per-account lock, shared through
// redis when it is enabled so every instance sees the same counts.
type Usage struct {
	fx.Out

	Meter  usage.Meter
	Locker usage.Locker
}

func newUsage(lc fx.Lifecycle, conf *config.Config) Usage {
	if !conf.Redis.Enabled {
		return Usage{Meter: usage.NewMemoryMeter(nil), Locker: usage.NewMemoryLocker()}
	}
	client := usage.NewRedisClient(conf.Redis)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return Usage{
		Meter:  usage.NewRedisMeter(client, nil),
		Locker: usage.NewRedisLocker(client, conf.Redis.LockTTL),
	}
}

func newRunner(conf *config.Config) llm.Runner {
	return llm.NewRunner(context.Background(), conf.LLM)
}
