package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	corsAllowHeaders = strings.Join([]string{echo.HeaderAuthorization, echo.HeaderContentType, XRequestID}, ", ")
	corsAllowMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
)

// OriginAllowed reports whether a browser origin may call the API. Requests
// without an Origin header are not cross-origin and always pass.
func OriginAllowed(pattern *regexp.Regexp, origin string) bool {
	return origin == "" || pattern.MatchString(origin)
}

// CORS answers preflights for origins matching pattern. Other origins get no
// CORS headers, so browsers block the response.
func CORS(pattern *regexp.Regexp) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Response().Header()
			header.Add(echo.HeaderVary, echo.HeaderOrigin)
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" || !OriginAllowed(pattern, origin) {
				return next(c)
			}
			header.Set(echo.HeaderAccessControlAllowOrigin, origin)
			header.Set(echo.HeaderAccessControlExposeHeaders, XRequestID)
			if c.Request().Method == http.MethodOptions {
				header.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
				header.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
				header.Set(echo.HeaderAccessControlMaxAge, "600")
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}
