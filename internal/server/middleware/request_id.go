package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/agent-console/pkg/ctxval"
)

const (
	XRequestID = "x-request-id"

	maxRequestIDLen = 64
)

type requestIDKey struct{}

// GetRequestID returns the id assigned by RequestID, or "" outside of it.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(XRequestID).(string); ok {
		return id
	}
	return GetRequestIDFromContext(c.Request().Context())
}

func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctxval.Get[requestIDKey, string](ctx, requestIDKey{})
	return id
}

// InjectRequestID stores reqID on the echo context and on a ctxval bag in
// the request context, so every context-aware log line carries it.
func InjectRequestID(c echo.Context, reqID string) {
	ctx := ctxval.Wrap(c.Request().Context())
	ctxval.Set(ctx, requestIDKey{}, reqID)
	ctxval.AddFields(ctx, "request_id", reqID)

	c.SetRequest(c.Request().WithContext(ctx))
	c.Set(XRequestID, reqID)
}

// RequestIDConfig configures RequestIDWithConfig.
type RequestIDConfig struct {
	Skipper      Skipper
	GenerateFunc func() string
}

func RequestID() echo.MiddlewareFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig reuses a caller supplied x-request-id when it is a
// short printable token and generates one otherwise. The id is echoed back
// in the response header.
func RequestIDWithConfig(config RequestIDConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}
	if config.GenerateFunc == nil {
		config.GenerateFunc = uuid.NewString
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}
			reqID := c.Request().Header.Get(XRequestID)
			if !validRequestID(reqID) {
				reqID = config.GenerateFunc()
			}
			InjectRequestID(c, reqID)
			c.Response().Header().Set(XRequestID, reqID)
			return next(c)
		}
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		if r < '!' || r > '~' {
			return false
		}
	}
	return true
}
