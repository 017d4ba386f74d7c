package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
)

// StatusClientClosed is logged when the caller went away mid-request.
const StatusClientClosed = 499

// ErrorResponse maps an error to its status code and body.
func ErrorResponse(err error) (int, ErrorBody) {
	var (
		he   *echo.HTTPError
		aerr *models.AuthError
		perr *models.PolicyError
		serr *models.StoreError
		verr *models.ValidationError
	)
	switch {
	case errors.As(err, &he):
		return he.Code, ErrorBody{Error: fmt.Sprint(he.Message)}
	case errors.As(err, &aerr):
		status := http.StatusUnauthorized
		if aerr.Kind == models.AuthInvalid {
			status = http.StatusBadRequest
		}
		return status, ErrorBody{Error: authMessage(aerr.Kind), Code: "auth_" + string(aerr.Kind)}
	case errors.As(err, &perr):
		return http.StatusForbidden, ErrorBody{Error: perr.Error(), Code: string(perr.Kind)}
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorBody{Error: verr.Error(), Code: string(verr.Kind)}
	case errors.Is(err, models.ErrDuplicateEmail):
		return http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: "duplicate_email"}
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: "invalid_credentials"}
	case errors.Is(err, models.ErrAccountSuspended):
		return http.StatusForbidden, ErrorBody{Error: err.Error(), Code: "account_suspended"}
	case errors.As(err, &serr):
		return storeStatus(serr.Kind), ErrorBody{Error: storeMessage(serr.Kind), Code: "store_" + string(serr.Kind)}
	case errors.Is(err, context.Canceled):
		return StatusClientClosed, ErrorBody{Error: "request canceled"}
	}
	return http.StatusInternalServerError, ErrorBody{Error: http.StatusText(http.StatusInternalServerError)}
}

func authMessage(kind models.AuthErrorKind) string {
	switch kind {
	case models.AuthMissing:
		return "missing token"
	case models.AuthExpired:
		return "token expired"
	}
	return "invalid token"
}

func storeStatus(kind models.StoreErrorKind) int {
	switch kind {
	case models.StoreNotFound:
		return http.StatusNotFound
	case models.StorePermission:
		return http.StatusForbidden
	case models.StoreNetwork:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// storeMessage keeps driver details out of responses.
func storeMessage(kind models.StoreErrorKind) string {
	switch kind {
	case models.StoreNotFound:
		return "not found"
	case models.StorePermission:
		return "store permission denied"
	case models.StoreNetwork:
		return "store unavailable"
	}
	return "store error"
}

// ErrorHandler return custom http error handler.
func ErrorHandler(log Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if err == nil || c.Response().Committed {
			return
		}

		status, body := ErrorResponse(err)
		if status == http.StatusNotFound && isNotFoundHandler(c.Handler()) {
			body.Error = "no route matched"
		}
		if status >= http.StatusInternalServerError {
			log.Errorw("request failed", "status", status, "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Errorw("could not response", "code", status, "response_body", body)
		}
	}
}
