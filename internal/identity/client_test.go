package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credipyme/onboarding-api/internal/identity"
	"github.com/credipyme/onboarding-api/internal/model"
)

// fakeProvider emulates the slice of the provider API the client touches:
// GoTrue signup/token/admin endpoints and the PostgREST profiles table.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()

	row := model.Identity{
		ID:        "u-1",
		Email:     "a@x.com",
		FullName:  "Ana Perez",
		Role:      model.RoleClient,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == "taken@x.com" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]string{"id": "u-1"}})
	})

	mux.HandleFunc("/auth/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["email_confirm"])
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "u-2"})
	})

	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "longenough1" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "upstream-token",
			"user":         map[string]string{"id": "u-1"},
		})
	})

	mux.HandleFunc("/rest/v1/user_profiles", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("apikey"))
		q := r.URL.Query()
		switch r.Method {
		case http.MethodGet:
			if email := q.Get("email"); email != "" {
				if email == "eq.a@x.com" {
					_ = json.NewEncoder(w).Encode([]model.Identity{row})
				} else {
					_ = json.NewEncoder(w).Encode([]model.Identity{})
				}
				return
			}
			if id := q.Get("id"); id != "" {
				if id == "eq.u-1" {
					_ = json.NewEncoder(w).Encode([]model.Identity{row})
				} else {
					_ = json.NewEncoder(w).Encode([]model.Identity{})
				}
				return
			}
			// Listing: echo the paging parameters back through the
			// row count so the test can assert they were sent.
			assert.Equal(t, "created_at.desc", q.Get("order"))
			assert.Equal(t, "5", q.Get("offset"))
			assert.Equal(t, "2", q.Get("limit"))
			_ = json.NewEncoder(w).Encode([]model.Identity{row, row})
		case http.MethodPatch:
			assert.Contains(t, r.Header.Get("Prefer"), "return=representation")
			if q.Get("id") != "eq.u-1" {
				_ = json.NewEncoder(w).Encode([]model.Identity{})
				return
			}
			var patch map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			updated := row
			if v, ok := patch["full_name"].(string); ok {
				updated.FullName = v
			}
			_ = json.NewEncoder(w).Encode([]model.Identity{updated})
		case http.MethodPost:
			assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			upserted := row
			upserted.ID, _ = body["id"].(string)
			_ = json.NewEncoder(w).Encode([]model.Identity{upserted})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFindByEmail(t *testing.T) {
	srv := fakeProvider(t)
	c := identity.NewClient(srv.URL, "test-key")

	ident, err := c.FindByEmail(context.Background(), "A@X.com ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", ident.ID)

	_, err = c.FindByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestClientCreateAccount(t *testing.T) {
	srv := fakeProvider(t)
	c := identity.NewClient(srv.URL, "test-key")

	id, err := c.CreateAccount(context.Background(), "a@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	_, err = c.CreateAccount(context.Background(), "taken@x.com", "longenough1")
	assert.ErrorIs(t, err, identity.ErrEmailExists)
}

func TestClientCreateAccountAsAdmin(t *testing.T) {
	srv := fakeProvider(t)
	c := identity.NewClient(srv.URL, "test-key")

	id, err := c.CreateAccountAsAdmin(context.Background(), "op@x.com", "longenough1",
		map[string]any{"role": "operator"})
	require.NoError(t, err)
	assert.Equal(t, "u-2", id)
}

func TestClientVerifyCredentials(t *testing.T) {
	srv := fakeProvider(t)
	c := identity.NewClient(srv.URL, "test-key")

	id, err := c.VerifyCredentials(context.Background(), "a@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	_, err = c.VerifyCredentials(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestClientVerifyCredentialsCollapsesOutages(t *testing.T) {
	// A dead provider must look exactly like bad credentials.
	c := identity.NewClient("http://127.0.0.1:1", "test-key")
	_, err := c.VerifyCredentials(context.Background(), "a@x.com", "longenough1")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestClientGetProfile(t *testing.T) {
	srv := fakeProvider(t)
	c := identity.NewClient(srv.URL, "test-key")

	ident, err := c.GetProfile(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", ident.Email)

	_, err = c.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestClientUpdateProfile(t *testing.T) {
	srv := fakeProvider(t)
	c := identity.NewClient(srv.URL, "test-key")

	name := "New Name"
	ident, err := c.UpdateProfile(context.Background(), "u-1", identity.ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", ident.FullName)

	_, err = c.UpdateProfile(context.Background(), "missing", identity.ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestClientUpsertProfile(t *testing.T) {
	srv := fakeProvider(t)
	c := identity.NewClient(srv.URL, "test-key")

	ident, err := c.UpsertProfile(context.Background(), model.Identity{
		ID:       "u-9",
		Email:    "nine@x.com",
		Role:     model.RoleClient,
		IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "u-9", ident.ID)
}

func TestClientListProfiles(t *testing.T) {
	srv := fakeProvider(t)
	c := identity.NewClient(srv.URL, "test-key")

	rows, err := c.ListProfiles(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestClientReportsUpstreamFailure(t *testing.T) {
	c := identity.NewClient("http://127.0.0.1:1", "test-key")
	_, err := c.GetProfile(context.Background(), "u-1")
	assert.ErrorIs(t, err, identity.ErrUpstream)
}
