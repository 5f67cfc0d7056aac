package auth // package auth implements local token issuing/verification and password hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Verification failures are collapsed into three kinds so callers can map
// them to stable responses without inspecting library internals.
var (
	// ErrTokenMalformed means the token could not be parsed into the
	// expected structure at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired means the signature checked out but the expiry
	// claim lies in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrBadSignature means the token did not verify against the
	// configured secret, or was signed with a different method.
	ErrBadSignature = errors.New("token signature invalid")
)

// DefaultTTL is applied whenever a caller issues a token without an
// explicit lifetime.
const DefaultTTL = 30 * time.Minute

// signingMethods lists the HMAC variants accepted as algorithm
// identifiers in configuration.  Asymmetric methods are rejected at
// startup: the service holds a single shared secret.
var signingMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Codec signs and verifies access tokens.  Both sides use the same
// process-wide secret, signing method and default TTL, all fixed at
// construction, so a Codec is safe for concurrent use.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
}

// NewCodec builds a Codec from configuration values.  The algorithm must
// name one of the supported HMAC variants and the secret must be
// non-empty; anything else is a configuration error, surfaced here rather
// than at first use.
func NewCodec(secret, algorithm string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret must not be empty")
	}
	method, ok := signingMethods[algorithm]
	if !ok {
		return nil, errors.New("auth: unsupported signing algorithm " + algorithm)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), method: method, ttl: ttl}, nil
}

// TTL returns the default token lifetime the codec was configured with.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token for the given subject.  The payload carries the
// subject (sub), expiry (exp) and issued-at (iat) claims.  A zero ttl
// falls back to the codec's configured default; a negative ttl produces an
// already-expired token, which is occasionally useful in tests.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = c.ttl
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(c.method, claims)
	return t.SignedString(c.secret)
}

// Verify checks the signature and expiry of a token and returns the
// embedded subject.  The keyfunc rejects any token whose signing method is
// not HMAC so tokens cannot downgrade the algorithm.  Failures map onto
// the three sentinel errors above; expiry is checked before the signature
// sentinel so an expired-but-authentic token reports ErrTokenExpired.
func (c *Codec) Verify(token string) (string, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrBadSignature):
			return "", ErrBadSignature
		default:
			return "", ErrTokenMalformed
		}
	}
	if !tok.Valid {
		return "", ErrTokenMalformed
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenMalformed
	}
	return sub, nil
}
