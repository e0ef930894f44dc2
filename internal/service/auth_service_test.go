package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/infopanel-api/internal/models"
	appErrors "github.com/noah-isme/infopanel-api/pkg/errors"
)

type mockAuthRepo struct {
	users map[string]*models.User
	err   error
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.users[user.Username]; ok {
		return false, nil
	}
	user.UserID = int64(len(m.users) + 1)
	m.users[user.Username] = user
	return true, nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{users: map[string]*models.User{
		"admin":  {UserID: 1, Username: "admin", PasswordHash: string(hash), IsAdmin: true},
		"viewer": {UserID: 2, Username: "viewer", PasswordHash: string(hash)},
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "test-secret", AccessTokenExpiry: time.Hour, Issuer: "infopanel"})
	return svc, repo
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.Role)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginViewerRole(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "viewer", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, resp.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)

	for _, req := range []models.LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "ghost", Password: "secret"},
	} {
		_, err := svc.Login(context.Background(), req)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestLoginRepositoryFailure(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.err = errors.New("db down")

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newAuthFixture(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: 1,
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, _ := newAuthFixture(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	svc, repo := newAuthFixture(t)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "root", "toor"))
	require.Contains(t, repo.users, "root")
	assert.True(t, repo.users["root"].IsAdmin)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "root", Password: "toor"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.Role)

	before := repo.users["admin"].PasswordHash
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "changed"))
	assert.Equal(t, before, repo.users["admin"].PasswordHash)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
}
