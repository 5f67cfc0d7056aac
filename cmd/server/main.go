package main // Entry point package

import (
	"log"  // Logging library
	"time" // minute-based TTL conversion

	"github.com/joho/godotenv"                   // .env loader for local development
	"github.com/labstack/echo/v4"                // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Echo's built-in middleware (CORS)

	"github.com/credipyme/onboarding-api/internal/auth"       // token codec
	"github.com/credipyme/onboarding-api/internal/config"     // internal config loader
	"github.com/credipyme/onboarding-api/internal/handler"    // endpoint handlers
	"github.com/credipyme/onboarding-api/internal/identity"   // identity provider client
	"github.com/credipyme/onboarding-api/internal/middleware" // rate limiting
	"github.com/credipyme/onboarding-api/internal/router"     // route registration
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load() // Load environment config

	// The codec validates the configured algorithm up front so a typo in
	// JWT_ALGORITHM fails the boot rather than the first login.
	codec, err := auth.NewCodec(cfg.JWTSecret, cfg.JWTAlgorithm, time.Duration(cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		log.Fatal(err)
	}

	ids := identity.NewClient(cfg.IdentityURL, cfg.IdentityKey)

	// Redis is optional: a nil client disables rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	a := handler.NewAuthHandler(ids, codec)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, a, codec, ids, limiter)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
