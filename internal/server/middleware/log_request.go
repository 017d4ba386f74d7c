package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

const redactedValue = "****"

// DefaultRedactFields are body keys never written to the access log.
var DefaultRedactFields = []string{"password", "token", "key", "apiKey"}

// LogRequestConfig configures the access log.
type LogRequestConfig struct {
	Logger  Logger
	Skipper Skipper
	// RequestBody reports whether the JSON body of c is logged. Off by default.
	RequestBody  func(c echo.Context) bool
	RedactFields []string
	KeyAndValues func(c echo.Context) []any
}

// LogRequest writes one line per request. Handler errors are rendered here
// so the logged status is the one sent.
func LogRequest(config LogRequestConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		panic("Logger is required to use LogRequest")
	}
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}
	if config.RequestBody == nil {
		config.RequestBody = func(echo.Context) bool { return false }
	}
	if config.RedactFields == nil {
		config.RedactFields = DefaultRedactFields
	}
	redact := make(map[string]struct{}, len(config.RedactFields))
	for _, f := range config.RedactFields {
		redact[strings.ToLower(f)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			start := time.Now()
			req := c.Request()

			var body []byte
			logBody := config.RequestBody(c) &&
				strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
			if logBody {
				body, _ = io.ReadAll(req.Body)
				req.Body = io.NopCloser(bytes.NewReader(body))
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()

			args := make([]any, 0, 24)
			args = append(args,
				"status", res.Status,
				"method", req.Method,
				"route", c.Path(),
				"uri", req.RequestURI,
				"latency_ms", time.Since(start).Milliseconds(),
				"real_ip", c.RealIP(),
				"request_id", GetRequestID(c),
			)
			if config.KeyAndValues != nil {
				args = append(args, config.KeyAndValues(c)...)
			}
			if logBody && len(body) > 0 {
				args = append(args, "request_body", redactBody(body, redact))
			}

			switch {
			case res.Status >= 500:
				if err != nil {
					args = append(args, "error", err.Error())
				}
				config.Logger.Errorw("http request", args...)
			case res.Status >= 400:
				config.Logger.Warnw("http request", args...)
			default:
				config.Logger.Infow("http request", args...)
			}
			return err
		}
	}
}

// redactBody masks sensitive keys at any depth. Bodies that are not JSON are
// reduced to their size.
func redactBody(body []byte, fields map[string]struct{}) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]int{"bytes": len(body)}
	}
	return redactValue(v, fields)
}

func redactValue(v any, fields map[string]struct{}) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if _, ok := fields[strings.ToLower(k)]; ok {
				t[k] = redactedValue
				continue
			}
			t[k] = redactValue(inner, fields)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactValue(t[i], fields)
		}
		return t
	default:
		return v
	}
}
