package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/pkg/ctxval"
)

// ClaimsKey is where JWTAuth leaves the verified *models.Claims.
const ClaimsKey = "claims"

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Claims, error)
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", models.ErrTokenMissing
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", models.NewAuthError(models.AuthInvalid, errors.New("authorization header must use the Bearer scheme"))
	}
	return token, nil
}

// JWTAuth is the gate every protected route passes before any policy check.
func JWTAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			claims, err := verifier.Verify(ctx, token)
			if err != nil {
				return err
			}

			ctxval.AddFields(ctx, "user_id", claims.Subject)
			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

// GetClaims returns the claims JWTAuth stored, or nil on public routes.
func GetClaims(c echo.Context) *models.Claims {
	claims, _ := c.Get(ClaimsKey).(*models.Claims)
	return claims
}

func GetUserID(c echo.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Subject
	}
	return ""
}
