package identity

// client.go implements Store against a Supabase-style provider: a GoTrue
// auth API under /auth/v1 for accounts and credentials, and a PostgREST
// endpoint under /rest/v1 for the user_profiles table.  Requests carry the
// project API key both as the `apikey` header and as a bearer token, which
// is the scheme the provider expects for server-side (service role) calls.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/credipyme/onboarding-api/internal/model"
)

const profilesTable = "user_profiles"

// Client talks to the external identity provider over HTTP.  It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a Client for the provider at baseURL authenticated with
// apiKey.  The HTTP client carries a ceiling timeout so a hung provider
// cannot pin request goroutines forever; per-request contexts still cancel
// earlier when the caller goes away.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// authPayload is the subset of GoTrue responses the client cares about.
// Depending on the endpoint the account id arrives either at the top level
// or nested under "user".
type authPayload struct {
	ID   string `json:"id"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (p authPayload) userID() string {
	if p.User.ID != "" {
		return p.User.ID
	}
	return p.ID
}

func (p authPayload) errText() string {
	for _, s := range []string{p.Msg, p.Message, p.ErrorDescription} {
		if s != "" {
			return s
		}
	}
	return ""
}

// FindByEmail looks the profile up through PostgREST's eq filter.
func (c *Client) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("email", "eq."+strings.ToLower(strings.TrimSpace(email)))
	q.Set("limit", "1")
	rows, err := c.profileRows(ctx, http.MethodGet, q, nil, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// CreateAccount registers through the regular signup endpoint.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (string, error) {
	return c.createAuthUser(ctx, "/auth/v1/signup", map[string]any{
		"email":    email,
		"password": password,
	})
}

// CreateAccountAsAdmin registers through the admin endpoint, which skips
// signup confirmation.  Metadata lands in the account's user_metadata.
func (c *Client) CreateAccountAsAdmin(ctx context.Context, email, password string, metadata map[string]any) (string, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}
	if len(metadata) > 0 {
		body["user_metadata"] = metadata
	}
	return c.createAuthUser(ctx, "/auth/v1/admin/users", body)
}

func (c *Client) createAuthUser(ctx context.Context, path string, body map[string]any) (string, error) {
	resp, raw, err := c.do(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	var payload authPayload
	_ = json.Unmarshal(raw, &payload)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The provider reports duplicates as a client error with a
		// distinctive message rather than a dedicated status.
		if strings.Contains(strings.ToLower(payload.errText()), "already") {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("%w: %s returned %d", ErrUpstream, path, resp.StatusCode)
	}
	id := payload.userID()
	if id == "" {
		return "", fmt.Errorf("%w: %s response carried no user id", ErrUpstream, path)
	}
	return id, nil
}

// VerifyCredentials exchanges the email/password pair for the account id
// using the password grant.  Any provider-side failure, wrong password and
// unknown email included, collapses into ErrInvalidCredentials so the
// caller cannot tell which step failed.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (string, error) {
	resp, raw, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", map[string]any{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return "", ErrInvalidCredentials
	}
	var payload authPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.userID() == "" {
		return "", ErrInvalidCredentials
	}
	return payload.userID(), nil
}

// GetProfile fetches the profile row keyed by id.
func (c *Client) GetProfile(ctx context.Context, id string) (*model.Identity, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")
	rows, err := c.profileRows(ctx, http.MethodGet, q, nil, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// UpdateProfile PATCHes the non-nil fields onto the row keyed by id.  The
// representation preference makes PostgREST echo the updated rows; an
// empty echo means the id matched nothing.
func (c *Client) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*model.Identity, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	rows, err := c.profileRows(ctx, http.MethodPatch, q, u, "return=representation")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// UpsertProfile writes the whole row in one call.  merge-duplicates makes
// PostgREST update on primary-key conflict instead of failing, which is
// what keeps registration free of the update-then-insert race.
func (c *Client) UpsertProfile(ctx context.Context, ident model.Identity) (*model.Identity, error) {
	row := map[string]any{
		"id":        ident.ID,
		"email":     ident.Email,
		"full_name": ident.FullName,
		"role":      ident.Role,
		"is_active": ident.IsActive,
	}
	rows, err := c.profileRows(ctx, http.MethodPost, nil, row, "return=representation,resolution=merge-duplicates")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: upsert returned no row", ErrUpstream)
	}
	return &rows[0], nil
}

// ListProfiles pages through the table newest-first.
func (c *Client) ListProfiles(ctx context.Context, offset, limit int) ([]model.Identity, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return c.profileRows(ctx, http.MethodGet, q, nil, "")
}

// profileRows performs one request against the profiles table and decodes
// the row array PostgREST answers with.  Any non-2xx status or undecodable
// body is reported as ErrUpstream.
func (c *Client) profileRows(ctx context.Context, method string, q url.Values, body any, prefer string) ([]model.Identity, error) {
	path := "/rest/v1/" + profilesTable
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, raw, err := c.do(ctx, method, path, body, prefer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrUpstream, method, profilesTable, resp.StatusCode)
	}
	var rows []model.Identity
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: decoding %s rows: %v", ErrUpstream, profilesTable, err)
	}
	return rows, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, prefer string) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, raw, nil
}
