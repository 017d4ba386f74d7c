package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
	"github.com/nguyentranbao-ct/agent-console/pkg/crypto"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
)

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET,required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	Issuer     string        `env:"ISSUER" envDefault:"agent-console"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
	SeedFile   string        `env:"SEED_FILE"`
}

type AuthUsecase struct {
	users     UserRepository
	tokens    RevokedTokenRepository
	validator *validate.Validator
	cfg       AuthConfig
	now       func() time.Time

	// dummyHash is compared against when the email is unknown so that a
	// miss costs as much as a wrong password.
	dummyHash []byte
}

func NewAuthUsecase(cfg AuthConfig, users UserRepository, tokens RevokedTokenRepository, v *validate.Validator) (*AuthUsecase, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &AuthUsecase{
		users:     users,
		tokens:    tokens,
		validator: v,
		cfg:       cfg,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// WithClock replaces the clock used for issuing and checking tokens.
func (uc *AuthUsecase) WithClock(now func() time.Time) *AuthUsecase {
	uc.now = now
	return uc
}

// Register creates a free-tier user account and returns its id. Only the
// bcrypt hash of the password is stored.
func (uc *AuthUsecase) Register(ctx context.Context, email, password string) (string, error) {
	req := models.CredentialsRequest{Email: strings.TrimSpace(email), Password: password}
	if err := uc.validator.Record(req); err != nil {
		return "", err
	}
	return uc.createUser(ctx, req.Email, req.Password, "", models.RoleUser, models.TierFree)
}

func (uc *AuthUsecase) createUser(ctx context.Context, email, password, name string, role models.Role, tier models.Tier) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := uc.now()
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Status:       models.UserActive,
		Tier:         tier,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			return "", models.ErrDuplicateEmail
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	log.Infow(ctx, "user registered", "user_id", user.ID, "role", role, "tier", tier)
	return string(user.ID), nil
}

// Login exchanges credentials for a signed token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (uc *AuthUsecase) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	req := models.CredentialsRequest{Email: strings.TrimSpace(email), Password: password}
	if err := uc.validator.Record(req); err != nil {
		return nil, err
	}

	user, err := uc.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(uc.dummyHash, []byte(password))
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	if user.Status == models.UserSuspended {
		return nil, models.ErrAccountSuspended
	}

	token, expiresAt, err := uc.issue(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	log.Infow(ctx, "user logged in", "user_id", user.ID)
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

func (uc *AuthUsecase) issue(user *models.User) (string, time.Time, error) {
	now := uc.now()
	expiresAt := now.Add(uc.cfg.TokenTTL)
	claims := models.Claims{
		Email: user.Email,
		Role:  user.Role,
		Tier:  user.Tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   string(user.ID),
			Issuer:    uc.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry and revocation of a bearer token.
func (uc *AuthUsecase) Verify(ctx context.Context, token string) (*models.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.NewAuthError(models.AuthMissing, nil)
	}

	claims := &models.Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return []byte(uc.cfg.JWTSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(uc.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(uc.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, models.NewAuthError(models.AuthExpired, err)
	case err != nil:
		return nil, models.NewAuthError(models.AuthInvalid, err)
	case !claims.UserID().Valid():
		return nil, models.NewAuthError(models.AuthInvalid, errors.New("bad subject"))
	}

	revoked, err := uc.tokens.IsRevoked(ctx, crypto.HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, models.NewAuthError(models.AuthInvalid, errors.New("token revoked"))
	}
	return claims, nil
}

// Logout revokes token until its natural expiry.
func (uc *AuthUsecase) Logout(ctx context.Context, token string) error {
	claims, err := uc.Verify(ctx, token)
	if err != nil {
		return err
	}
	if err := uc.tokens.Revoke(ctx, crypto.HashToken(strings.TrimSpace(token)), claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	log.Infow(ctx, "user logged out", "user_id", claims.Subject)
	return nil
}
