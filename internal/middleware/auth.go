package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/credipyme/onboarding-api/internal/auth"
	"github.com/credipyme/onboarding-api/internal/identity"
	"github.com/credipyme/onboarding-api/internal/model"
)

// identityKey is the context key under which Authenticate stores the
// resolved profile for downstream middleware and handlers.
const identityKey = "identity"

// CurrentIdentity returns the profile Authenticate resolved for this
// request.  The second return is false when no authentication middleware
// ran on the route.
func CurrentIdentity(c echo.Context) (*model.Identity, bool) {
	ident, ok := c.Get(identityKey).(*model.Identity)
	return ident, ok
}

// Authenticate returns an Echo middleware that validates a Bearer access
// token and resolves the caller's profile from the identity provider.  The
// request advances only when the token verifies and the subject still maps
// to an existing profile; a vanished profile answers the same 401 as a bad
// token so callers cannot probe which ids exist.  Provider outages are the
// one case reported differently (502), since they say nothing about the
// credential itself.
func Authenticate(codec *auth.Codec, ids identity.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the
			// token.  Anything else means the caller is
			// unauthenticated.
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			// Signature and expiry checks happen locally; no
			// provider round trip is spent on garbage tokens.
			subject, err := codec.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			ident, err := ids.GetProfile(ctx, subject)
			if err != nil {
				if errors.Is(err, identity.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
				return c.JSON(http.StatusBadGateway, echo.Map{"error": "identity service unavailable"})
			}

			c.Set(identityKey, ident)
			return next(c)
		}
	}
}

// RequireActive returns a middleware that rejects inactive accounts with
// 403.  It assumes Authenticate already ran on the route.
func RequireActive() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := CurrentIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if !ident.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
			}
			return next(c)
		}
	}
}

// RequireRole returns a middleware that enforces a minimum privilege tier.
// RequireRole(model.RoleAdmin) admits admins only; RequireRole(
// model.RoleOperator) admits operators and admins.  The active check runs
// before the role check, so an inactive admin is still rejected as
// inactive rather than admitted by rank.
func RequireRole(min model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := CurrentIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if !ident.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
			}
			if !ident.Role.AtLeast(min) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}
			return next(c)
		}
	}
}
