package handler

import (
	"context"  // context with cancellation for provider calls
	"errors"   // sentinel error matching
	"net/http" // HTTP status codes and primitives
	"strconv"  // string-to-int conversion for pagination
	"strings"  // string normalization utilities
	"time"     // timeouts around provider calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/credipyme/onboarding-api/internal/auth"       // token codec
	"github.com/credipyme/onboarding-api/internal/identity"   // identity provider boundary
	"github.com/credipyme/onboarding-api/internal/middleware" // current-identity accessor
	"github.com/credipyme/onboarding-api/internal/model"      // identity/role model
	"github.com/credipyme/onboarding-api/internal/queue"      // event payloads
	queue_publisher "github.com/credipyme/onboarding-api/internal/service"
)

// minPasswordLen is enforced on register and admin-create before any
// provider call is spent.
const minPasswordLen = 8

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Ids   identity.Store
	Codec *auth.Codec
}

func NewAuthHandler(ids identity.Store, codec *auth.Codec) *AuthHandler {
	return &AuthHandler{Ids: ids, Codec: codec}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`      // admin | operator | client
	IsActive *bool  `json:"is_active"` // nil means default (true)
}

type updateReq struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates an account through the provider's signup flow and
// writes its profile row in one upsert.  Self-registration defaults to the
// client role and an active account; the email pre-check keeps the common
// duplicate case cheap, while the provider's own uniqueness constraint
// remains the final authority under races.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	role := model.RoleClient
	if req.Role != "" {
		parsed, ok := model.ParseRole(req.Role)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
		}
		role = parsed
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Ids.FindByEmail(ctx, req.Email); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	} else if !errors.Is(err, identity.ErrNotFound) {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
	}

	id, err := h.Ids.CreateAccount(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
	}

	profile, err := h.Ids.UpsertProfile(ctx, model.Identity{
		ID:       id,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
		IsActive: active,
	})
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
	}

	// Best effort: registration succeeds even when the broker is down.
	_ = queue_publisher.PublishUserRegistered(ctx, queue.UserRegisteredEvent{
		UserID:       profile.ID,
		Email:        profile.Email,
		FullName:     profile.FullName,
		Role:         string(profile.Role),
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, profile)
}

// Login delegates credential verification to the provider and mints a
// local access token on success.  The form field is named "username" for
// OAuth2 password-flow compatibility but carries the email.  Every failure
// mode answers the same 401 so nothing reveals whether the email exists,
// the password was wrong, or the provider misbehaved.
func (h *AuthHandler) Login(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("username")))
	password := c.FormValue("password")
	if email == "" || password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	subject, err := h.Ids.VerifyCredentials(ctx, email, password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := h.Codec.Issue(subject, 0) // 0 = configured default TTL
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	return c.JSON(http.StatusOK, tokenResp{AccessToken: token, TokenType: "bearer"})
}

// Me returns the caller's own profile, already resolved by the
// authentication middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	ident, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}
	return c.JSON(http.StatusOK, ident)
}

// AdminCreateUser creates privileged accounts.  Only admin and operator
// roles may be requested here, and the check runs before any provider
// call; client accounts go through Register.  The account is created
// through the provider's admin API so it skips signup confirmation.
func (h *AuthHandler) AdminCreateUser(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role, ok := model.ParseRole(req.Role)
	if !ok || (role != model.RoleAdmin && role != model.RoleOperator) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be admin or operator"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Ids.FindByEmail(ctx, req.Email); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	} else if !errors.Is(err, identity.ErrNotFound) {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
	}

	id, err := h.Ids.CreateAccountAsAdmin(ctx, req.Email, req.Password, map[string]any{
		"name": req.FullName,
		"role": string(role),
	})
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
	}

	profile, err := h.Ids.UpsertProfile(ctx, model.Identity{
		ID:       id,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
		IsActive: active,
	})
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
	}

	_ = queue_publisher.PublishUserRegistered(ctx, queue.UserRegisteredEvent{
		UserID:       profile.ID,
		Email:        profile.Email,
		FullName:     profile.FullName,
		Role:         string(profile.Role),
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, profile)
}

// ListUsers pages through all profiles newest-first.  skip/limit default
// to 0/100 when absent or unparseable.
func (h *AuthHandler) ListUsers(c echo.Context) error {
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", 100)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profiles, err := h.Ids.ListProfiles(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
	}
	return c.JSON(http.StatusOK, profiles)
}

// UpdateUser applies a partial update to the profile named in the path.
// Absent fields stay untouched; an empty payload is rejected rather than
// sent upstream as a no-op.
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	targetID := c.Param("id")
	var req updateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	update := identity.ProfileUpdate{
		FullName: req.FullName,
		IsActive: req.IsActive,
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email must not be empty"})
		}
		update.Email = &email
	}
	if req.Role != nil {
		role, ok := model.ParseRole(*req.Role)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
		}
		update.Role = &role
	}
	if update.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profile, err := h.Ids.UpdateProfile(ctx, targetID, update)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
	}

	updatedBy := ""
	if caller, ok := middleware.CurrentIdentity(c); ok {
		updatedBy = caller.ID
	}
	_ = queue_publisher.PublishUserUpdated(ctx, queue.UserUpdatedEvent{
		UserID:    profile.ID,
		UpdatedBy: updatedBy,
		Fields:    updatedFields(update),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, profile)
}

// queryInt parses an integer query parameter, falling back to def.
func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// updatedFields lists the attribute names present in a partial update.
func updatedFields(u identity.ProfileUpdate) []string {
	var fields []string
	if u.Email != nil {
		fields = append(fields, "email")
	}
	if u.FullName != nil {
		fields = append(fields, "full_name")
	}
	if u.Role != nil {
		fields = append(fields, "role")
	}
	if u.IsActive != nil {
		fields = append(fields, "is_active")
	}
	return fields
}
