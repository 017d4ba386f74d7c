package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/internal/store/memstore"
	"github.com/nguyentranbao-ct/agent-console/internal/validate"
)

const testSecret = "test-secret"

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuth(t *testing.T) (*AuthUsecase, *memstore.Users, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	users := memstore.NewUsers(memstore.New[models.User]("users"))
	tokens := memstore.NewRevokedTokens(clk.now)
	uc, err := NewAuthUsecase(AuthConfig{
		JWTSecret:  testSecret,
		TokenTTL:   time.Hour,
		Issuer:     "agent-console",
		BcryptCost: bcrypt.MinCost,
	}, users, tokens, validate.New())
	require.NoError(t, err)
	return uc.WithClock(clk.now), users, clk
}

func TestNewAuthUsecaseRequiresSecret(t *testing.T) {
	_, err := NewAuthUsecase(AuthConfig{}, nil, nil, validate.New())
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	uc, users, _ := newAuth(t)

	id, err := uc.Register(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.True(t, models.ObjectID(id).Valid())

	first, err := users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", first.PasswordHash)
	assert.Equal(t, models.RoleUser, first.Role)
	assert.Equal(t, models.TierFree, first.Tier)

	_, err = uc.Register(ctx, "A@x.com", "pw2")
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)

	after, err := users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.PasswordHash, after.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(after.PasswordHash), []byte("pw")))
}

func TestRegisterValidation(t *testing.T) {
	uc, _, _ := newAuth(t)
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"bad email", "not-an-email", "pw"},
		{"empty password", "a@x.com", ""},
		{"empty email", "", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Register(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, models.ErrMalformedInput)
		})
	}
}

func TestLoginAndVerify(t *testing.T) {
	ctx := context.Background()
	uc, _, clk := newAuth(t)

	id, err := uc.Register(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	_, err = uc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	_, err = uc.Login(ctx, "nobody@x.com", "pw")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	resp, err := uc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, clk.now().Add(time.Hour), resp.ExpiresAt)

	claims, err := uc.Verify(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.ObjectID(id), claims.UserID())
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, models.TierFree, claims.Tier)

	clk.advance(59 * time.Minute)
	_, err = uc.Verify(ctx, resp.Token)
	assert.NoError(t, err)

	clk.advance(2 * time.Minute)
	_, err = uc.Verify(ctx, resp.Token)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestVerifyRejects(t *testing.T) {
	ctx := context.Background()
	uc, _, clk := newAuth(t)

	_, err := uc.Verify(ctx, "")
	assert.ErrorIs(t, err, models.ErrTokenMissing)

	_, err = uc.Verify(ctx, "not.a.token")
	assert.ErrorIs(t, err, models.ErrTokenInvalid)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(models.NewObjectID()),
			Issuer:    "agent-console",
			ExpiresAt: jwt.NewNumericDate(clk.now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = uc.Verify(ctx, forged)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: string(models.NewObjectID()),
			Issuer:  "agent-console",
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = uc.Verify(ctx, noExpiry)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestLoginSuspended(t *testing.T) {
	ctx := context.Background()
	uc, users, _ := newAuth(t)

	require.NoError(t, users.Create(ctx, &models.User{
		Email:        "s@x.com",
		PasswordHash: mustHash(t, "pw"),
		Role:         models.RoleUser,
		Status:       models.UserSuspended,
		Tier:         models.TierFree,
	}))

	_, err := uc.Login(ctx, "s@x.com", "pw")
	assert.ErrorIs(t, err, models.ErrAccountSuspended)
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newAuth(t)

	_, err := uc.Register(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	resp, err := uc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	require.NoError(t, uc.Logout(ctx, resp.Token))
	_, err = uc.Verify(ctx, resp.Token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)

	assert.ErrorIs(t, uc.Logout(ctx, resp.Token), models.ErrTokenInvalid)
}

func TestSeedAccounts(t *testing.T) {
	ctx := context.Background()
	uc, users, _ := newAuth(t)

	seed := []byte(`
- email: root@x.com
  password: rootpw
  name: Root
  role: super_admin
  tier: pro
- email: plain@x.com
  password: plainpw
`)
	require.NoError(t, uc.SeedAccounts(ctx, seed))

	root, err := users.GetByEmail(ctx, "root@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, root.Role)
	assert.Equal(t, models.TierPro, root.Tier)
	assert.Equal(t, "Root", root.Name)

	plain, err := users.GetByEmail(ctx, "plain@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, plain.Role)
	assert.Equal(t, models.TierFree, plain.Tier)

	require.NoError(t, uc.SeedAccounts(ctx, seed))
	again, err := users.GetByEmail(ctx, "root@x.com")
	require.NoError(t, err)
	assert.Equal(t, root.PasswordHash, again.PasswordHash)

	_, err = uc.Login(ctx, "root@x.com", "rootpw")
	assert.NoError(t, err)
}

func TestSeedAccountsRejectsBadEntry(t *testing.T) {
	uc, _, _ := newAuth(t)
	err := uc.SeedAccounts(context.Background(), []byte("- email: nope\n  password: x\n"))
	assert.ErrorIs(t, err, models.ErrMalformedInput)
}

func TestSeedAccountsFileEmptyPath(t *testing.T) {
	uc, _, _ := newAuth(t)
	assert.NoError(t, uc.SeedAccountsFile(context.Background(), ""))
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}
