// Package identity defines the boundary to the external identity provider:
// the system of record for accounts, credentials and profile rows.  The
// service never stores credentials or profiles itself; everything flows
// through the Store interface so handlers and middleware stay independent
// of the concrete backend (the REST client in production, the in-memory
// store in tests and local development).
package identity

import (
	"context"
	"errors"

	"github.com/credipyme/onboarding-api/internal/model"
)

// Sentinel errors returned by Store implementations.  Handlers translate
// these into stable HTTP responses; no provider error leaves this package
// in its raw form.
var (
	// ErrNotFound means the referenced profile does not exist.
	ErrNotFound = errors.New("identity not found")
	// ErrEmailExists means an account with the given email is already
	// registered.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidCredentials means the email/password pair failed
	// verification.  Implementations must not distinguish an unknown
	// email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUpstream wraps any provider failure that is not one of the
	// expected outcomes above (unreachable, unexpected payload shape).
	ErrUpstream = errors.New("identity provider failure")
)

// ProfileUpdate carries a partial update for a profile row.  Only non-nil
// fields are applied; absent fields stay untouched.
type ProfileUpdate struct {
	Email    *string     `json:"email,omitempty"`
	FullName *string     `json:"full_name,omitempty"`
	Role     *model.Role `json:"role,omitempty"`
	IsActive *bool       `json:"is_active,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.FullName == nil && u.Role == nil && u.IsActive == nil
}

// Store is the contract against the external identity provider.  Every
// method takes a context and performs at most one upstream round trip; no
// method retries internally, and a cancelled context aborts the pending
// call.
type Store interface {
	// FindByEmail returns the profile registered under email, or
	// ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// CreateAccount registers a new account through the regular signup
	// flow and returns the provider-assigned id.  Duplicate emails
	// surface as ErrEmailExists.
	CreateAccount(ctx context.Context, email, password string) (string, error)

	// CreateAccountAsAdmin registers an account through the provider's
	// admin API, bypassing signup confirmation, and attaches the given
	// metadata to the account record.
	CreateAccountAsAdmin(ctx context.Context, email, password string, metadata map[string]any) (string, error)

	// VerifyCredentials checks the email/password pair against the
	// provider and returns the account id on success.  Every failure
	// mode collapses into ErrInvalidCredentials.
	VerifyCredentials(ctx context.Context, email, password string) (string, error)

	// GetProfile returns the profile row keyed by id, or ErrNotFound.
	GetProfile(ctx context.Context, id string) (*model.Identity, error)

	// UpdateProfile applies the non-nil fields of u to the profile keyed
	// by id and returns the updated row, or ErrNotFound when the id does
	// not resolve to any profile.
	UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*model.Identity, error)

	// UpsertProfile writes a complete profile row keyed by ident.ID,
	// creating or replacing it in a single operation.  Registration uses
	// this instead of an update-then-insert fallback so a partial
	// failure can never leave a profile without its role.
	UpsertProfile(ctx context.Context, ident model.Identity) (*model.Identity, error)

	// ListProfiles returns up to limit profiles starting at offset,
	// ordered by created_at descending.
	ListProfiles(ctx context.Context, offset, limit int) ([]model.Identity, error)
}
