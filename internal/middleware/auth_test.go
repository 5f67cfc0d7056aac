package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/credipyme/onboarding-api/internal/auth"
	"github.com/credipyme/onboarding-api/internal/identity"
	"github.com/credipyme/onboarding-api/internal/middleware"
	"github.com/credipyme/onboarding-api/internal/model"
)

func newFixture(t *testing.T) (*auth.Codec, *identity.Memory) {
	t.Helper()
	codec, err := auth.NewCodec("gate-test-secret", "HS256", time.Minute)
	require.NoError(t, err)
	return codec, identity.NewMemory(bcrypt.MinCost)
}

func seedProfile(t *testing.T, ids *identity.Memory, id string, role model.Role, active bool) {
	t.Helper()
	_, err := ids.UpsertProfile(context.Background(), model.Identity{
		ID:       id,
		Email:    id + "@x.com",
		FullName: "Test User",
		Role:     role,
		IsActive: active,
	})
	require.NoError(t, err)
}

// run sends one request through the given middleware chain terminating in
// a 200 handler, and returns the recorder.
func run(t *testing.T, token string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestAuthenticateMissingToken(t *testing.T) {
	codec, ids := newFixture(t)
	rec := run(t, "", middleware.Authenticate(codec, ids))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	codec, ids := newFixture(t)
	rec := run(t, "garbage", middleware.Authenticate(codec, ids))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	codec, ids := newFixture(t)
	seedProfile(t, ids, "u-1", model.RoleClient, true)
	token, err := codec.Issue("u-1", -time.Minute)
	require.NoError(t, err)

	rec := run(t, token, middleware.Authenticate(codec, ids))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateVanishedSubject(t *testing.T) {
	codec, ids := newFixture(t)
	token, err := codec.Issue("no-such-user", time.Minute)
	require.NoError(t, err)

	// A valid token whose subject no longer resolves must answer the
	// same 401 as a bad token.
	rec := run(t, token, middleware.Authenticate(codec, ids))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthenticateResolvesIdentity(t *testing.T) {
	codec, ids := newFixture(t)
	seedProfile(t, ids, "u-1", model.RoleClient, true)
	token, err := codec.Issue("u-1", time.Minute)
	require.NoError(t, err)

	rec := run(t, token, middleware.Authenticate(codec, ids))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInactiveAdminFailsActiveCheck(t *testing.T) {
	codec, ids := newFixture(t)
	seedProfile(t, ids, "u-admin", model.RoleAdmin, false)
	token, err := codec.Issue("u-admin", time.Minute)
	require.NoError(t, err)

	// Inactive precedes role: even an admin is rejected as inactive.
	rec := run(t, token, middleware.Authenticate(codec, ids), middleware.RequireActive())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive")

	rec = run(t, token, middleware.Authenticate(codec, ids), middleware.RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive")
}

func TestOperatorRoleGates(t *testing.T) {
	codec, ids := newFixture(t)
	seedProfile(t, ids, "u-op", model.RoleOperator, true)
	token, err := codec.Issue("u-op", time.Minute)
	require.NoError(t, err)

	// Operator passes operator-or-admin...
	rec := run(t, token, middleware.Authenticate(codec, ids), middleware.RequireRole(model.RoleOperator))
	assert.Equal(t, http.StatusOK, rec.Code)

	// ...but not admin-only.
	rec = run(t, token, middleware.Authenticate(codec, ids), middleware.RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActiveClientPassesActiveGate(t *testing.T) {
	codec, ids := newFixture(t)
	seedProfile(t, ids, "u-client", model.RoleClient, true)
	token, err := codec.Issue("u-client", time.Minute)
	require.NoError(t, err)

	rec := run(t, token, middleware.Authenticate(codec, ids), middleware.RequireActive())
	assert.Equal(t, http.StatusOK, rec.Code)
}
