package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/agent-console/internal/config"
	pkgmdw "github.com/nguyentranbao-ct/agent-console/internal/server/middleware"
	"github.com/nguyentranbao-ct/agent-console/internal/usecase"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
	"github.com/nguyentranbao-ct/agent-console/pkg/logger"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
)

// NewEcho builds the HTTP surface: middleware chain, public auth routes and
// the bearer-protected console API.
func NewEcho(
	conf *config.Config,
	auth *usecase.AuthUsecase,
	console *usecase.ConsoleUsecase,
	v *validate.Validator,
) (*echo.Echo, error) {
	origins, err := regexp.Compile(conf.Server.AllowOrigins)
	if err != nil {
		return nil, fmt.Errorf("compile allowed origins: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v
	e.HTTPErrorHandler = pkgmdw.ErrorHandler(logger.MustNamed("http"))

	logConfig := pkgmdw.LogRequestConfig{
		Logger: logger.MustNamed("http"),
		Skipper: func(c echo.Context) bool {
			uri := c.Request().RequestURI
			return uri == "/health" || uri == "/metrics"
		},
		// agent configs can be megabytes
		RequestBody: func(c echo.Context) bool {
			return c.Path() != "/api/agents/:id/config"
		},
		KeyAndValues: func(c echo.Context) []any {
			if id := pkgmdw.GetUserID(c); id != "" {
				return []any{"user_id", id}
			}
			return nil
		},
	}

	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.CORS(origins))
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return nil
		},
	}))
	if conf.Server.Pprof {
		pkgmdw.PprofWrap(e)
	}

	health := NewHealthController()
	authCtl := NewAuthController(auth)
	consoleCtl := NewConsoleController(console)
	watch := NewWatchHandler(auth, console, origins)

	e.GET("/health", health.Health)

	api := e.Group("/api")
	api.POST("/register", pkgmdw.WrapHandler(authCtl.Register))
	api.POST("/login", pkgmdw.WrapHandler(authCtl.Login))
	// browsers cannot set headers on a websocket handshake, so the watch
	// route authenticates itself
	api.GET("/dashboard/watch", watch.Watch)

	protected := api.Group("", pkgmdw.JWTAuth(auth))
	protected.GET("/protected", pkgmdw.WrapHandler(authCtl.Protected))
	protected.POST("/logout", pkgmdw.WrapHandler(authCtl.Logout))

	protected.GET("/dashboard", pkgmdw.WrapHandler(consoleCtl.Dashboard))

	protected.POST("/agents", pkgmdw.WrapHandler(consoleCtl.CreateAgent))
	protected.PATCH("/agents/:id", pkgmdw.WrapHandler(consoleCtl.UpdateAgent))
	protected.PUT("/agents/:id/config", consoleCtl.SaveAgentConfig)
	protected.POST("/agents/:id/publish", pkgmdw.WrapHandler(consoleCtl.PublishAgent))
	protected.POST("/agents/:id/test", pkgmdw.WrapHandler(consoleCtl.TestAgent))
	protected.DELETE("/agents/:id", pkgmdw.WrapHandler(consoleCtl.DeleteAgent))

	protected.POST("/chatbots", pkgmdw.WrapHandler(consoleCtl.CreateChatbot))
	protected.PATCH("/chatbots/:id", pkgmdw.WrapHandler(consoleCtl.UpdateChatbot))
	protected.DELETE("/chatbots/:id", pkgmdw.WrapHandler(consoleCtl.DeleteChatbot))

	protected.POST("/tickets", pkgmdw.WrapHandler(consoleCtl.CreateTicket))
	protected.POST("/tickets/:id/resolve", pkgmdw.WrapHandler(consoleCtl.ResolveTicket))

	protected.POST("/api-keys", pkgmdw.WrapHandler(consoleCtl.CreateAPIKey))
	protected.POST("/api-keys/:id/regenerate", pkgmdw.WrapHandler(consoleCtl.RegenerateAPIKey))
	protected.DELETE("/api-keys/:id", pkgmdw.WrapHandler(consoleCtl.DeleteAPIKey))

	protected.PATCH("/users/:id", pkgmdw.WrapHandler(consoleCtl.UpdateUser))
	protected.PUT("/users/:id/role", pkgmdw.WrapHandler(consoleCtl.AssignRole))
	protected.DELETE("/users/:id", pkgmdw.WrapHandler(consoleCtl.DeleteUser))

	return e, nil
}

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	e *echo.Echo,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(ctx, "starting HTTP server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					log.Errorw(ctx, "HTTP server stopped", "error", err)
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
