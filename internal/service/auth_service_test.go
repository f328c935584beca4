package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/repository"
	"github.com/noah-isme/student-portal-api/pkg/config"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	// createErr overrides Create to simulate races against the unique index.
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*models.User{}}
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	f.byEmail[user.Email] = user
	return nil
}

func newTestAuthService(repo *fakeUserRepo, sessions *fakeCache) *AuthService {
	return NewAuthService(repo, sessions, nil, zap.NewNop(), config.AuthConfig{
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
	})
}

func TestSignupHashesPasswordAndNormalizesEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo, newFakeCache())

	info, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "  Jane@Example.COM ",
		Name:     " Jane Doe ",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", info.Email)
	assert.Equal(t, "Jane Doe", info.Name)
	assert.NotEmpty(t, info.ID)

	stored := repo.byEmail["jane@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "secret123")
}

func TestSignupRejectsShortPassword(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo(), newFakeCache())

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "jane@example.com",
		Name:     "Jane",
		Password: "short",
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo, newFakeCache())
	req := models.SignupRequest{Email: "jane@example.com", Name: "Jane", Password: "secret123"}

	_, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), req)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "email already registered", appErr.Message)
}

func TestSignupDuplicateEmailRace(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = repository.ErrDuplicateEmail
	svc := newTestAuthService(repo, newFakeCache())

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "jane@example.com",
		Name:     "Jane",
		Password: "secret123",
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestLoginOpensSession(t *testing.T) {
	repo := newFakeUserRepo()
	sessions := newFakeCache()
	svc := newTestAuthService(repo, sessions)
	ctx := context.Background()

	_, err := svc.Signup(ctx, models.SignupRequest{Email: "jane@example.com", Name: "Jane", Password: "secret123"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, models.LoginRequest{Email: "Jane@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.Len(t, sessions.entries, 1)

	claims, err := svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestLoginNormalizesPaddedEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo, newFakeCache())
	ctx := context.Background()

	_, err := svc.Signup(ctx, models.SignupRequest{Email: "jane@example.com", Name: "Jane", Password: "secret123"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, models.LoginRequest{Email: "  JANE@Example.COM  ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", resp.User.Email)

	// A padded unknown address takes the opaque-credentials path, not
	// validation.
	_, err = svc.Login(ctx, models.LoginRequest{Email: "  nobody@example.com ", Password: "secret123"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginWrongPasswordIsOpaque(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo, newFakeCache())
	ctx := context.Background()

	_, err := svc.Signup(ctx, models.SignupRequest{Email: "jane@example.com", Name: "Jane", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "jane@example.com", Password: "wrong"})
	badPassword := appErrors.FromError(err)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	unknownEmail := appErrors.FromError(err)

	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, badPassword.Code)
	assert.Equal(t, badPassword.Code, unknownEmail.Code)
	assert.Equal(t, badPassword.Message, unknownEmail.Message)
}

func TestLogoutRevokesSession(t *testing.T) {
	repo := newFakeUserRepo()
	sessions := newFakeCache()
	svc := newTestAuthService(repo, sessions)
	ctx := context.Background()

	_, err := svc.Signup(ctx, models.SignupRequest{Email: "jane@example.com", Name: "Jane", Password: "secret123"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))

	// The token itself is still unexpired, but its session record is gone.
	_, err = svc.Authenticate(ctx, resp.Token)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	assert.Equal(t, "session expired", appErr.Message)
}

func TestAuthenticateRejectsForgedToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo, newFakeCache())
	ctx := context.Background()

	_, err := svc.Signup(ctx, models.SignupRequest{Email: "jane@example.com", Name: "Jane", Password: "secret123"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	other := NewAuthService(repo, newFakeCache(), nil, zap.NewNop(), config.AuthConfig{
		TokenSecret: "different-secret",
		TokenTTL:    time.Hour,
	})
	_, err = other.Authenticate(ctx, resp.Token)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
