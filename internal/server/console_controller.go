package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/agent-console/internal/dashboard"
	"github.com/nguyentranbao-ct/agent-console/internal/llm"
	"github.com/nguyentranbao-ct/agent-console/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/agent-console/internal/server/middleware"
	"github.com/nguyentranbao-ct/agent-console/internal/usecase"
)

// maxConfigBytes bounds a single agent config upload.
const maxConfigBytes = 4 << 20

// ConsoleController opens one session per request. Every handler closes it
// before returning so no watch outlives the request.
type ConsoleController struct {
	console *usecase.ConsoleUsecase
}

func NewConsoleController(console *usecase.ConsoleUsecase) *ConsoleController {
	return &ConsoleController{console: console}
}

func (cc *ConsoleController) withSession(c echo.Context, fn func(s *usecase.Session) error) error {
	s, err := cc.console.Open(c.Request().Context(), pkgmdw.GetClaims(c))
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// IDParam is the :id path segment. It never binds from the body.
type IDParam struct {
	ID string `param:"id" json:"-" validate:"required,mongodb"`
}

type IDResponse struct {
	ID string `json:"id"`
}

func (cc *ConsoleController) Dashboard(c echo.Context, _ struct{}) (view dashboard.View, err error) {
	err = cc.withSession(c, func(s *usecase.Session) error {
		view, err = s.Dashboard(c.Request().Context())
		return err
	})
	return view, err
}

func (cc *ConsoleController) CreateAgent(c echo.Context, req models.AgentInput) (res *pkgmdw.Response, err error) {
	err = cc.withSession(c, func(s *usecase.Session) error {
		id, err := s.CreateAgent(c.Request().Context(), req)
		res = pkgmdw.Created(IDResponse{ID: id})
		return err
	})
	return res, err
}

type updateAgentRequest struct {
	IDParam
	models.AgentUpdate
}

func (cc *ConsoleController) UpdateAgent(c echo.Context, req updateAgentRequest) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.UpdateAgent(c.Request().Context(), req.ID, req.AgentUpdate)
	})
}

// SaveAgentConfig takes the raw body so that malformed JSON reaches the
// usecase and fails as a validation error instead of a bind error.
func (cc *ConsoleController) SaveAgentConfig(c echo.Context) error {
	var req IDParam
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxConfigBytes+1))
	if err != nil {
		return fmt.Errorf("read config body: %w", err)
	}
	if len(raw) > maxConfigBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "config too large")
	}

	err = cc.withSession(c, func(s *usecase.Session) error {
		return s.SaveAgentConfig(c.Request().Context(), req.ID, raw)
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (cc *ConsoleController) PublishAgent(c echo.Context, req IDParam) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.PublishAgent(c.Request().Context(), req.ID)
	})
}

type testAgentRequest struct {
	IDParam
	models.AgentTestRequest
}

func (cc *ConsoleController) TestAgent(c echo.Context, req testAgentRequest) (res *llm.TestResult, err error) {
	err = cc.withSession(c, func(s *usecase.Session) error {
		res, err = s.TestAgent(c.Request().Context(), req.ID, req.Input)
		return err
	})
	return res, err
}

func (cc *ConsoleController) DeleteAgent(c echo.Context, req IDParam) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.DeleteAgent(c.Request().Context(), req.ID)
	})
}

func (cc *ConsoleController) CreateChatbot(c echo.Context, req models.ChatbotInput) (res *pkgmdw.Response, err error) {
	err = cc.withSession(c, func(s *usecase.Session) error {
		id, err := s.CreateChatbot(c.Request().Context(), req)
		res = pkgmdw.Created(IDResponse{ID: id})
		return err
	})
	return res, err
}

type updateChatbotRequest struct {
	IDParam
	models.ChatbotUpdate
}

func (cc *ConsoleController) UpdateChatbot(c echo.Context, req updateChatbotRequest) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.UpdateChatbot(c.Request().Context(), req.ID, req.ChatbotUpdate)
	})
}

func (cc *ConsoleController) DeleteChatbot(c echo.Context, req IDParam) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.DeleteChatbot(c.Request().Context(), req.ID)
	})
}

func (cc *ConsoleController) CreateTicket(c echo.Context, req models.TicketInput) (res *pkgmdw.Response, err error) {
	err = cc.withSession(c, func(s *usecase.Session) error {
		id, err := s.CreateTicket(c.Request().Context(), req)
		res = pkgmdw.Created(IDResponse{ID: id})
		return err
	})
	return res, err
}

func (cc *ConsoleController) ResolveTicket(c echo.Context, req IDParam) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.ResolveTicket(c.Request().Context(), req.ID)
	})
}

func (cc *ConsoleController) CreateAPIKey(c echo.Context, req models.APIKeyInput) (res *pkgmdw.Response, err error) {
	err = cc.withSession(c, func(s *usecase.Session) error {
		key, err := s.CreateAPIKey(c.Request().Context(), req)
		res = pkgmdw.Created(key)
		return err
	})
	return res, err
}

func (cc *ConsoleController) RegenerateAPIKey(c echo.Context, req IDParam) (key *models.APIKey, err error) {
	err = cc.withSession(c, func(s *usecase.Session) error {
		key, err = s.RegenerateAPIKey(c.Request().Context(), req.ID)
		return err
	})
	return key, err
}

func (cc *ConsoleController) DeleteAPIKey(c echo.Context, req IDParam) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.DeleteAPIKey(c.Request().Context(), req.ID)
	})
}

type updateUserRequest struct {
	IDParam
	models.UserUpdate
}

func (cc *ConsoleController) UpdateUser(c echo.Context, req updateUserRequest) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.UpdateUser(c.Request().Context(), req.ID, req.UserUpdate)
	})
}

type assignRoleRequest struct {
	IDParam
	models.RoleAssignment
}

func (cc *ConsoleController) AssignRole(c echo.Context, req assignRoleRequest) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.AssignRole(c.Request().Context(), req.ID, req.RoleAssignment)
	})
}

func (cc *ConsoleController) DeleteUser(c echo.Context, req IDParam) error {
	return cc.withSession(c, func(s *usecase.Session) error {
		return s.DeleteUser(c.Request().Context(), req.ID)
	})
}
