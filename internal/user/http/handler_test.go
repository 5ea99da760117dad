package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryUsers struct {
	mu   sync.Mutex
	rows map[string]*user.User
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memoryUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	c := *u
	m.rows[u.ID] = &c
	return nil
}

func (m *memoryUsers) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.rows[id]; ok {
		u.LastLoginAt = &t
	}
	return nil
}

func (m *memoryUsers) List(context.Context, user.UserFilter) ([]*user.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*user.User
	for _, u := range m.rows {
		c := *u
		out = append(out, &c)
	}
	return out, len(out), nil
}

func (m *memoryUsers) Update(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[u.ID]; !ok {
		return user.ErrNotFound
	}
	c := *u
	m.rows[u.ID] = &c
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return user.ErrNotFound
	}
	u.IsActive = false
	return nil
}

type memorySessions struct {
	mu   sync.Mutex
	live map[string]string
}

func (s *memorySessions) Create(_ context.Context, userID string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.live[id] = userID
	return id, nil
}

func (s *memorySessions) Validate(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.live[id]
	if !ok {
		return "", auth.ErrSessionNotFound
	}
	return uid, nil
}

func (s *memorySessions) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, id)
	return nil
}

func (s *memorySessions) RevokeUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, uid := range s.live {
		if uid == userID {
			delete(s.live, id)
		}
	}
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "hashed:"+p {
		return errors.New("mismatch")
	}
	return nil
}

func requireAdmin(c *gin.Context) {
	if !auth.IsAdmin(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	c.Next()
}

type fixture struct {
	router  *gin.Engine
	service user.Service
}

func newFixture() fixture {
	repo := &memoryUsers{rows: map[string]*user.User{}}
	sessions := &memorySessions{live: map[string]string{}}
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	svc := user.NewService(repo, plainHasher{}, sessions)

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc, jwtManager, sessions), auth.AuthRequired(jwtManager, sessions), requireAdmin)
	return fixture{router: r, service: svc}
}

func (f fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f fixture) login(t *testing.T, email, password string) LoginResponse {
	t.Helper()
	w := f.do(http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRegisterLoginLogout(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/v1/auth/register", "", RegisterRequest{Email: "alice@example.com", Password: "password1", DisplayName: "Alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/v1/auth/register", "", RegisterRequest{Email: "alice@example.com", Password: "password1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: "alice@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login := f.login(t, "alice@example.com", "password1")
	assert.Equal(t, auth.RoleUser, login.User.Role)
	assert.Equal(t, 3600, login.ExpiresIn)

	w = f.do(http.MethodGet, "/v1/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "alice@example.com", me.User.Email)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/v1/users", login.AccessToken, nil).Code)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/v1/auth/logout", login.AccessToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/me", login.AccessToken, nil).Code)
}

func TestAdminRoleChangeEndsSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.service.EnsureAdmin(ctx, "root@example.com", "password1"))
	bob, err := f.service.Register(ctx, "bob@example.com", "password1", "")
	require.NoError(t, err)

	admin := f.login(t, "root@example.com", "password1")
	assert.Equal(t, auth.RoleAdmin, admin.User.Role)
	bobLogin := f.login(t, "bob@example.com", "password1")

	w := f.do(http.MethodGet, "/v1/users", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	role := "admin"
	w = f.do(http.MethodPatch, "/v1/users/"+bob.ID, admin.AccessToken, UpdateUserRequest{Role: &role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Bob's old token still claims the user role, so it must no longer work.
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/me", bobLogin.AccessToken, nil).Code)
	promoted := f.login(t, "bob@example.com", "password1")
	assert.Equal(t, auth.RoleAdmin, promoted.User.Role)

	bad := "owner"
	w = f.do(http.MethodPatch, "/v1/users/"+bob.ID, admin.AccessToken, UpdateUserRequest{Role: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/users/"+bob.ID, admin.AccessToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/me", promoted.AccessToken, nil).Code)
	w = f.do(http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: "bob@example.com", Password: "password1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/users/"+uuid.NewString(), admin.AccessToken, nil).Code)
}
