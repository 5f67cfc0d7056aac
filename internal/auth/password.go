package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is a conservative work factor for environments that do
// not tune BCRYPT_COST explicitly.
const DefaultBcryptCost = 12

// HashPassword returns a bcrypt digest using the given cost.  The digest is
// self-describing: salt and cost travel inside it, so verification needs no
// separate state.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt digest and a plain password.
// The comparison is constant-time inside bcrypt; a malformed digest simply
// reports false.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
