package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/nguyentranbao-ct/agent-console/internal/config"
	"github.com/nguyentranbao-ct/agent-console/internal/server"
	"github.com/nguyentranbao-ct/agent-console/internal/usecase"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
	"github.com/nguyentranbao-ct/agent-console/pkg/logger"
)

func Invoke(funcs ...any) *fx.App {
	conf := config.MustLoad()
	if err := logger.Init(conf.Log); err != nil {
		panic(err)
	}
	log := logger.MustNamed("app")
	log.Debugw("config loaded", log.Reflect("config", redacted(conf)))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			validate.New,
			newSealer,
			newStorage,
			newPublisher,
			newUsage,
			newRunner,

			newAuthUsecase,
			usecase.NewAuditUsecase,
			usecase.NewConsoleUsecase,

			server.NewEcho,
		),
		fx.Supply(conf),
		fx.Invoke(SeedAccounts),
		fx.Invoke(funcs...),
	)
}

func newAuthUsecase(
	conf *config.Config,
	users usecase.UserRepository,
	tokens usecase.RevokedTokenRepository,
	v *validate.Validator,
) (*usecase.AuthUsecase, error) {
	return usecase.NewAuthUsecase(conf.Auth, users, tokens, v)
}

// SeedAccounts creates the accounts listed in AUTH_SEED_FILE on startup.
func SeedAccounts(lc fx.Lifecycle, conf *config.Config, auth *usecase.AuthUsecase) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return auth.SeedAccountsFile(ctx, conf.Auth.SeedFile)
		},
	})
}

// redacted returns a copy of conf that is safe to log.
func redacted(conf *config.Config) config.Config {
	c := *conf
	const mask = "******"
	if c.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = mask
	}
	if c.Crypto.EncryptionKey != "" {
		c.Crypto.EncryptionKey = mask
	}
	if c.Database.Password != "" {
		c.Database.Password = mask
	}
	if c.Redis.Password != "" {
		c.Redis.Password = mask
	}
	if c.LLM.GoogleAIAPIKey != "" {
		c.LLM.GoogleAIAPIKey = mask
	}
	return c
}
