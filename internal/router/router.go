package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework handles routing

	"github.com/credipyme/onboarding-api/internal/auth"       // token codec used by the gate
	"github.com/credipyme/onboarding-api/internal/handler"    // handlers implementing endpoint logic
	"github.com/credipyme/onboarding-api/internal/identity"   // identity provider boundary
	"github.com/credipyme/onboarding-api/internal/middleware" // authentication, roles, rate limiting
	"github.com/credipyme/onboarding-api/internal/model"      // role tiers for gating
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the API root banner and a health check for
// load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Welcome)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Credential endpoints (register, login) live under
// /api/v1/auth and are rate limited; /me requires a valid token; the
// /admin subtree additionally requires an active admin caller.  The role
// gate runs after authentication, so an inactive or under-privileged
// caller is told 403 rather than 401.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, codec *auth.Codec, ids identity.Store, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/v1/auth")

	// Unauthenticated operations.  The token-bucket limiter throttles
	// both so credential stuffing and registration floods hit the same
	// shared bucket across all service instances.
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter)

	// /me needs a verified token and an existing profile, nothing more:
	// an inactive user may still inspect their own profile.
	g.GET("/me", a.Me, middleware.Authenticate(codec, ids))

	// Admin subtree: token, active account and the admin tier.
	admin := g.Group("/admin",
		middleware.Authenticate(codec, ids),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.POST("/create-user", a.AdminCreateUser)
	admin.GET("/users", a.ListUsers)
	admin.PUT("/users/:id", a.UpdateUser)
}
