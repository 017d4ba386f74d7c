package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type HealthController interface {
	Health(c echo.Context) error
}

type healthController struct{}

func NewHealthController() HealthController {
	return healthController{}
}

func (healthController) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "agent-console",
	})
}
