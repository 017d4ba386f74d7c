package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func TestLogRequestRedactsBody(t *testing.T) {
	log, logs := newObservedLogger()
	e := echo.New()
	e.Use(LogRequest(LogRequestConfig{
		Logger:      log,
		RequestBody: func(echo.Context) bool { return true },
	}))
	var seen string
	e.POST("/api/login", func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		seen = string(b)
		return c.NoContent(http.StatusNoContent)
	})

	body := `{"email":"a@x.com","password":"hunter2","nested":{"token":"t"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, body, seen, "handler still reads the original body")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "/api/login", fields["route"])
	assert.EqualValues(t, http.StatusNoContent, fields["status"])
	logged := fields["request_body"].(map[string]any)
	assert.Equal(t, "a@x.com", logged["email"])
	assert.Equal(t, redactedValue, logged["password"])
	assert.Equal(t, redactedValue, logged["nested"].(map[string]any)["token"])
}

func TestLogRequestLevels(t *testing.T) {
	log, logs := newObservedLogger()
	e := echo.New()
	e.Use(LogRequest(LogRequestConfig{
		Logger:  log,
		Skipper: func(c echo.Context) bool { return c.Path() == "/health" },
	}))
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/missing", func(c echo.Context) error { return echo.ErrNotFound })
	e.GET("/boom", func(c echo.Context) error { return echo.ErrInternalServerError })

	for _, path := range []string{"/health", "/missing", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].ContextMap(), "error")
}

func TestRedactBodyNotJSON(t *testing.T) {
	got := redactBody([]byte("not json"), map[string]struct{}{})
	assert.Equal(t, map[string]int{"bytes": 8}, got)
}
