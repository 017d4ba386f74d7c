package middleware

import (
	"errors"
	"reflect"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/pkg/util"
)

const (
	httpRequestsDuration = "request_duration_seconds"
	httpErrorCodes       = "http_error_codes_total"
	notFoundPath         = "/not-found"
)

// MetricsConfig configures MetricsWithConfig. MetricsPath is served by the
// middleware itself; empty disables it.
type MetricsConfig struct {
	Skipper     Skipper
	MetricsPath string
}

func Metrics() echo.MiddlewareFunc {
	return MetricsWithConfig(MetricsConfig{MetricsPath: "/metrics"})
}

// MetricsWithConfig records a latency histogram per route and status, and
// counts refused requests by error class and code, e.g. policy and
// quota_exceeded.
func MetricsWithConfig(config MetricsConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}
	latency, err := util.GetHistogramVec(httpRequestsDuration, "code", "method", "path")
	if err != nil {
		panic(err)
	}
	refusals, err := util.GetCounterVec(httpErrorCodes, "class", "code", "path")
	if err != nil {
		panic(err)
	}

	var promHandler echo.HandlerFunc
	if config.MetricsPath != "" {
		promHandler = echo.WrapHandler(promhttp.Handler())
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if promHandler != nil && req.RequestURI == config.MetricsPath {
				return promHandler(c)
			}
			if config.Skipper(c) {
				return next(c)
			}

			// unmatched paths share one label
			path := c.Path()
			if isNotFoundHandler(c.Handler()) {
				path = notFoundPath
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
				if _, body := ErrorResponse(err); body.Code != "" {
					refusals.WithLabelValues(errorClass(err), body.Code, path).Inc()
				}
			}

			status := strconv.Itoa(c.Response().Status)
			latency.WithLabelValues(status, req.Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// errorClass names the part of the error taxonomy err belongs to.
func errorClass(err error) string {
	var (
		aerr *models.AuthError
		perr *models.PolicyError
		serr *models.StoreError
		verr *models.ValidationError
	)
	switch {
	case errors.As(err, &aerr):
		return "auth"
	case errors.As(err, &perr):
		return "policy"
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &serr):
		return "store"
	}
	return "account"
}

func isNotFoundHandler(handler echo.HandlerFunc) bool {
	return reflect.ValueOf(handler).Pointer() == reflect.ValueOf(echo.NotFoundHandler).Pointer()
}
