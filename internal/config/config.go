package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings" // strings splits list-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Everything here is read once at startup and
// never mutated afterwards; the rest of the service treats it as immutable.
type Config struct {
	Env          string   // application environment (e.g. "dev", "prod")
	Port         string   // HTTP port to listen on
	JWTSecret    string   // secret used to sign access tokens
	JWTAlgorithm string   // signing algorithm identifier (HS256/HS384/HS512)
	AccessTTLMin int      // access token time-to-live in minutes
	BcryptCost   int      // bcrypt cost for local password hashing
	IdentityURL  string   // base URL of the external identity provider
	IdentityKey  string   // API key for the identity provider
	CORSOrigins  []string // allowed CORS origins
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Values with safe
// defaults (algorithm, TTL, cost, CORS) fall back silently.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),            // environment (dev/test/prod)
		Port:         must("APP_PORT"),           // port to bind the HTTP server
		JWTSecret:    must("JWT_SECRET"),         // secret used for signing tokens
		JWTAlgorithm: envStr("JWT_ALGORITHM", "HS256"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 30),
		BcryptCost:   envInt("BCRYPT_COST", 12),
		IdentityURL:  must("IDENTITY_API_URL"), // identity provider base URL
		IdentityKey:  must("IDENTITY_API_KEY"), // identity provider API key
		CORSOrigins:  splitList(envStr("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// splitList turns a comma-separated variable into a trimmed slice.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
