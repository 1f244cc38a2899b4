package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/server/avatars"
	"github.com/dmitrijs2005/linkdeck/internal/server/config"
	"github.com/dmitrijs2005/linkdeck/internal/server/models"
	"github.com/dmitrijs2005/linkdeck/internal/server/services"
	"github.com/dmitrijs2005/linkdeck/internal/server/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memRepo implements users.Repository in memory for handler tests.
type memRepo struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (m *memRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := m.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u := *user
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.IsActive = true
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = &u
	m.byEmail[u.Email] = &u
	return &u, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memRepo) UpdateProfile(ctx context.Context, id string, name, avatar *string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	return u, nil
}

func (m *memRepo) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memRepo) TouchLastLogin(ctx context.Context, id string) error {
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

type testEnv struct {
	srv   *httptest.Server
	repo  *memRepo
	codec *token.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newMemRepo()
	codec := token.NewCodec("access", "refresh", time.Hour, 7*24*time.Hour)
	us := services.NewUserService(repo, codec, bcrypt.MinCost)
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	av := avatars.NewService(&config.Config{S3Bucket: "avatars", S3Region: "us-east-1"})

	server := NewServer(":0", logger, us, av, codec)

	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)

	return &testEnv{srv: ts, repo: repo, codec: codec}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func register(t *testing.T, e *testEnv, email, password string) (user map[string]any, access, refresh string) {
	t.Helper()

	resp, body := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	tokens := data["tokens"].(map[string]any)
	return data["user"].(map[string]any), tokens["accessToken"].(string), tokens["refreshToken"].(string)
}

func TestRegisterLoginMe_Roundtrip(t *testing.T) {
	e := newTestEnv(t)

	user, access, refresh := register(t, e, "a@b.com", "correctpw")
	require.Equal(t, "a@b.com", user["email"])
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotContains(t, user, "passwordHash")
	require.NotContains(t, user, "password_hash")

	resp, body := e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "a@b.com", "password": "correctpw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loginAccess := body["data"].(map[string]any)["tokens"].(map[string]any)["accessToken"].(string)

	resp, body = e.do(t, http.MethodGet, "/auth/me", loginAccess, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := body["data"].(map[string]any)
	require.Equal(t, "a@b.com", me["email"])
}

func TestLogin_Failures(t *testing.T) {
	e := newTestEnv(t)
	register(t, e, "a@b.com", "correctpw")

	resp, body := e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "a@b.com", "password": "wrongpw12",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid email or password", body["message"])

	// Unknown email must produce the exact same message: the API never
	// leaks whether an email is registered.
	resp, body = e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "nobody@b.com", "password": "whatever1",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid email or password", body["message"])
}

func TestLogin_InactiveAccount(t *testing.T) {
	e := newTestEnv(t)
	user, _, _ := register(t, e, "a@b.com", "correctpw")
	e.repo.byID[user["id"].(string)].IsActive = false

	resp, _ := e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "a@b.com", "password": "correctpw",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	register(t, e, "a@b.com", "correctpw")

	resp, _ := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@b.com", "password": "otherpw123",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGuard_Rejections(t *testing.T) {
	e := newTestEnv(t)
	user, _, _ := register(t, e, "a@b.com", "correctpw")

	resp, _ := e.do(t, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/auth/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Token of the wrong kind is rejected the same way.
	refreshOnly, err := e.codec.IssueRefresh(user["id"].(string), "a@b.com")
	require.NoError(t, err)
	resp, _ = e.do(t, http.MethodGet, "/auth/me", refreshOnly, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Expired access token.
	expired := token.NewCodec("access", "refresh", -time.Second, time.Hour)
	tok, err := expired.IssueAccess(user["id"].(string), "a@b.com")
	require.NoError(t, err)
	resp, _ = e.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Valid token for a disabled account.
	e.repo.byID[user["id"].(string)].IsActive = false
	valid, err := e.codec.IssueAccess(user["id"].(string), "a@b.com")
	require.NoError(t, err)
	resp, _ = e.do(t, http.MethodGet, "/auth/me", valid, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t)
	_, _, refresh := register(t, e, "a@b.com", "correctpw")

	resp, body := e.do(t, http.MethodPost, "/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	tokens := data["tokens"].(map[string]any)
	require.NotEmpty(t, tokens["accessToken"])
	require.NotEmpty(t, tokens["refreshToken"])
	require.Equal(t, "a@b.com", data["user"].(map[string]any)["email"])

	// New access token is immediately usable.
	resp, _ = e.do(t, http.MethodGet, "/auth/me", tokens["accessToken"].(string), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefresh_Failures(t *testing.T) {
	e := newTestEnv(t)
	user, _, _ := register(t, e, "a@b.com", "correctpw")

	resp, _ := e.do(t, http.MethodPost, "/auth/refresh", "", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	expired := token.NewCodec("access", "refresh", time.Hour, -time.Second)
	tok, err := expired.IssueRefresh(user["id"].(string), "a@b.com")
	require.NoError(t, err)
	resp, _ = e.do(t, http.MethodPost, "/auth/refresh", "", map[string]any{"refreshToken": tok})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/auth/refresh", "", map[string]any{"refreshToken": "garbage"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateMe(t *testing.T) {
	e := newTestEnv(t)
	_, access, _ := register(t, e, "a@b.com", "correctpw")

	resp, _ := e.do(t, http.MethodPut, "/auth/me", access, map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := e.do(t, http.MethodPut, "/auth/me", access, map[string]any{"name": "Alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Alice", body["data"].(map[string]any)["name"])
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t)
	_, access, _ := register(t, e, "a@b.com", "correctpw")

	resp, _ := e.do(t, http.MethodPut, "/auth/password", access, map[string]any{
		"currentPassword": "wrongpw", "newPassword": "newpassword",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPut, "/auth/password", access, map[string]any{
		"currentPassword": "correctpw", "newPassword": "newpassword",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "a@b.com", "password": "newpassword",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
}
