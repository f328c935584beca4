package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/middleware"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/repository"
	"github.com/noah-isme/student-portal-api/internal/service"
	"github.com/noah-isme/student-portal-api/pkg/config"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type memoryUserRepo struct {
	byEmail map[string]*models.User
}

func (m *memoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUserRepo) Create(_ context.Context, user *models.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.byEmail[user.Email] = user
	return nil
}

type memorySessionStore struct {
	entries map[string][]byte
}

func (m *memorySessionStore) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memorySessionStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memorySessionStore) Delete(_ context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func newTestAuthHandler() (*AuthHandler, *service.AuthService, *memorySessionStore) {
	cfg := config.AuthConfig{
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
		CookieName:  "portal_session",
	}
	sessions := &memorySessionStore{entries: map[string][]byte{}}
	svc := service.NewAuthService(&memoryUserRepo{byEmail: map[string]*models.User{}}, sessions, nil, zap.NewNop(), cfg)
	return NewAuthHandler(svc, cfg), svc, sessions
}

func newAuthContext(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func signupBody(email string) string {
	payload, _ := json.Marshal(models.SignupRequest{Email: email, Name: "Jane", Password: "secret123"})
	return string(payload)
}

func TestSignupCreatesAccount(t *testing.T) {
	h, _, _ := newTestAuthHandler()
	c, w := newAuthContext(t, signupBody("jane@example.com"))

	h.Signup(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Signup successful", body["message"])
	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", user["email"])
	assert.NotContains(t, w.Body.String(), "secret123")
}

func TestSignupInvalidJSON(t *testing.T) {
	h, _, _ := newTestAuthHandler()
	c, w := newAuthContext(t, `{"email":`)

	h.Signup(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	h, _, _ := newTestAuthHandler()

	c, w := newAuthContext(t, signupBody("jane@example.com"))
	h.Signup(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = newAuthContext(t, signupBody("jane@example.com"))
	h.Signup(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already registered", decodeBody(t, w)["message"])
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h, _, sessions := newTestAuthHandler()

	c, w := newAuthContext(t, signupBody("jane@example.com"))
	h.Signup(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = newAuthContext(t, `{"email":"jane@example.com","password":"secret123"}`)
	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Login successful", res.Message)
	assert.NotEmpty(t, res.Token)
	assert.Len(t, sessions.entries, 1)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "portal_session", cookies[0].Name)
	assert.Equal(t, res.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginWrongCredentials(t *testing.T) {
	h, _, _ := newTestAuthHandler()

	c, w := newAuthContext(t, signupBody("jane@example.com"))
	h.Signup(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = newAuthContext(t, `{"email":"jane@example.com","password":"wrong"}`)
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestLogoutClearsSessionAndCookie(t *testing.T) {
	h, svc, sessions := newTestAuthHandler()
	ctx := context.Background()

	c, w := newAuthContext(t, signupBody("jane@example.com"))
	h.Signup(c)
	require.Equal(t, http.StatusCreated, w.Code)

	res, err := svc.Login(ctx, models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)
	claims, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)

	c, w = newAuthContext(t, "")
	c.Set(middleware.ContextUserKey, claims)
	h.Logout(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logout successful", decodeBody(t, w)["message"])
	assert.Empty(t, sessions.entries)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "portal_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)

	_, err = svc.Authenticate(ctx, res.Token)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestLogoutWithoutSession(t *testing.T) {
	h, _, _ := newTestAuthHandler()
	c, w := newAuthContext(t, "")

	h.Logout(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
