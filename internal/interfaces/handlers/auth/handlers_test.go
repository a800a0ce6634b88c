package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authsvc "showroom-backend/internal/application/auth"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/middleware"
	"showroom-backend/internal/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserFinder for tests: returns configured user or error.
type fakeUserFinder struct {
	user *domain.User
	err  error
}

func (f *fakeUserFinder) FindByEmailAndPassword(email, password string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.user != nil && f.user.Email == email && password == "password123" {
		return f.user, nil
	}
	if f.user != nil && f.user.Email == email {
		return nil, authsvc.ErrIncorrectPassword
	}
	return nil, authsvc.ErrInvalidEmail
}

func setupAuthHandlers(t *testing.T, finder authsvc.UserFinder) (*Handlers, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	h := &Handlers{
		UserFinder: finder,
		Rdb:        rdb,
		Config: middleware.SessionConfig{
			AllowCrossSiteDev: false,
			IsProduction:      false,
		},
	}
	return h, rdb
}

func postLogin(t *testing.T, h *Handlers, body interface{}) *http.Response {
	t.Helper()
	app := fiber.New()
	app.Post("/login", h.Login)
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest("POST", "/login", reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestLogin_Failures(t *testing.T) {
	member := &domain.User{UserID: uuid.New(), Email: "owner@atelier-nord.com", Fullname: "Ines Moreau", Role: "member"}
	cases := []struct {
		name   string
		finder authsvc.UserFinder
		body   interface{}
		want   int
	}{
		{"empty body", &fakeUserFinder{user: member}, nil, fiber.StatusBadRequest},
		{"missing password", &fakeUserFinder{}, map[string]string{"email": "a@b.com"}, fiber.StatusBadRequest},
		{"unknown email", &fakeUserFinder{}, map[string]string{"email": "nobody@example.com", "password": "any"}, fiber.StatusUnauthorized},
		{"wrong password", &fakeUserFinder{user: member}, map[string]string{"email": member.Email, "password": "wrong"}, fiber.StatusUnauthorized},
		{"no user store", nil, map[string]string{"email": "a@b.com", "password": "pass"}, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := setupAuthHandlers(t, tc.finder)
			assert.Equal(t, tc.want, postLogin(t, h, tc.body).StatusCode)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	uid := uuid.New()
	h, rdb := setupAuthHandlers(t, &fakeUserFinder{user: &domain.User{UserID: uid, Email: "owner@atelier-nord.com", Fullname: "Ines Moreau", Role: "member"}})
	resp := postLogin(t, h, map[string]string{"email": "owner@atelier-nord.com", "password": "password123"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Login successful", out["message"])
	user := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "owner@atelier-nord.com", user["email"])
	assert.Equal(t, uid.String(), user["user_id"])

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, strings.HasPrefix(session.Value, "s:"))

	members, err := rdb.SMembers(context.Background(), "user_sessions:"+uid.String()).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{strings.TrimPrefix(session.Value, "s:")}, members)
}

func TestMe_NoSession(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Get("/me", h.Me)

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMe_WithSessionUserInLocals(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Get("/me", func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id":  "550e8400-e29b-41d4-a716-446655440000",
			"fullname": "Test",
			"email":    "test@example.com",
			"role":     "member",
		})
		return h.Me(c)
	})

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Authenticated", out["message"])
	data, _ := out["data"].(map[string]interface{})
	user, _ := data["user"].(map[string]interface{})
	assert.Equal(t, "test@example.com", user["email"])
}

func TestLogout_NoSession(t *testing.T) {
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	app := fiber.New()
	app.Delete("/logout", h.Logout)

	req := httptest.NewRequest("DELETE", "/logout", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookies := resp.Header.Values("Set-Cookie")
	assert.NotEmpty(t, cookies)
}

func TestMe_ListsOwnedAccounts(t *testing.T) {
	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 0)
	h, _ := setupAuthHandlers(t, &fakeUserFinder{})
	h.DB = db
	app := fiber.New()
	app.Get("/me", func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": f.ShowroomOwner.UserID.String(),
			"email":   f.ShowroomOwner.Email,
		})
		return h.Me(c)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data, _ := out["data"].(map[string]interface{})
	accounts, _ := data["accounts"].([]interface{})
	require.Len(t, accounts, 1)
	acc, _ := accounts[0].(map[string]interface{})
	assert.Equal(t, "showroom", acc["side"])
	assert.Equal(t, f.Showroom.ID.String(), acc["id"])
}

func TestLogout_ClearsRedisSession(t *testing.T) {
	h, rdb := setupAuthHandlers(t, &fakeUserFinder{})
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+"sid-1", "{}", 0).Err())
	require.NoError(t, rdb.SAdd(ctx, userSessionsPrefix+"u-1", "sid-1").Err())

	app := fiber.New()
	app.Delete("/logout", func(c *fiber.Ctx) error {
		c.Locals("session_id", "sid-1")
		c.Locals("user", map[string]interface{}{"user_id": "u-1"})
		return h.Logout(c)
	})
	resp, err := app.Test(httptest.NewRequest("DELETE", "/logout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	n, _ := rdb.Exists(ctx, middleware.SessionRedisPrefix+"sid-1").Result()
	assert.Equal(t, int64(0), n)
	members, _ := rdb.SMembers(ctx, userSessionsPrefix+"u-1").Result()
	assert.Empty(t, members)
}
