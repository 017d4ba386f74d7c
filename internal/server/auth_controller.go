package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/agent-console/internal/server/middleware"
	"github.com/nguyentranbao-ct/agent-console/internal/usecase"
)

type AuthController struct {
	authUsecase *usecase.AuthUsecase
}

func NewAuthController(authUsecase *usecase.AuthUsecase) *AuthController {
	return &AuthController{authUsecase: authUsecase}
}

func (ac *AuthController) Register(c echo.Context, req models.CredentialsRequest) (*pkgmdw.Response, error) {
	id, err := ac.authUsecase.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return pkgmdw.Created(models.RegisterResponse{ID: id}), nil
}

func (ac *AuthController) Login(c echo.Context, req models.CredentialsRequest) (*models.LoginResponse, error) {
	return ac.authUsecase.Login(c.Request().Context(), req.Email, req.Password)
}

type protectedRequest struct {
	UserID string `jwt:"sub"`
	Email  string `jwt:"email"`
	Role   string `jwt:"role"`
	Tier   string `jwt:"tier"`
}

type ProtectedUser struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Tier  models.Tier `json:"tier"`
}

type ProtectedResponse struct {
	Message string        `json:"message"`
	User    ProtectedUser `json:"user"`
}

// Protected echoes the verified identity back to the caller.
func (ac *AuthController) Protected(_ echo.Context, req protectedRequest) (*ProtectedResponse, error) {
	return &ProtectedResponse{
		Message: "access granted",
		User: ProtectedUser{
			ID:    req.UserID,
			Email: req.Email,
			Role:  models.Role(req.Role),
			Tier:  models.Tier(req.Tier),
		},
	}, nil
}

type logoutRequest struct {
	Authorization string `header:"Authorization"`
}

func (ac *AuthController) Logout(c echo.Context, req logoutRequest) error {
	token, err := pkgmdw.BearerToken(req.Authorization)
	if err != nil {
		return err
	}
	return ac.authUsecase.Logout(c.Request().Context(), token)
}
