package identity

// memory.go provides an in-process Store used by tests and local
// development when no provider is reachable.  It keeps the same observable
// contract as the REST client: provider-assigned UUID ids, unique emails,
// bcrypt-hashed credentials and created_at-descending listing.

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/credipyme/onboarding-api/internal/auth"
	"github.com/credipyme/onboarding-api/internal/model"
)

// Memory is a Store backed by maps.  Safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	profiles  map[string]model.Identity // keyed by id
	passwords map[string]string         // email -> bcrypt digest
	accounts  map[string]string         // email -> id
	cost      int
}

// NewMemory returns an empty in-memory store hashing passwords at the
// given bcrypt cost.
func NewMemory(cost int) *Memory {
	return &Memory{
		profiles:  make(map[string]model.Identity),
		passwords: make(map[string]string),
		accounts:  make(map[string]string),
		cost:      cost,
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Memory) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = normalize(email)
	for _, p := range m.profiles {
		if p.Email == email {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateAccount(ctx context.Context, email, password string) (string, error) {
	return m.createAccount(ctx, email, password)
}

func (m *Memory) CreateAccountAsAdmin(ctx context.Context, email, password string, _ map[string]any) (string, error) {
	return m.createAccount(ctx, email, password)
}

func (m *Memory) createAccount(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	email = normalize(email)
	hash, err := auth.HashPassword(password, m.cost)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[email]; ok {
		return "", ErrEmailExists
	}
	id := uuid.NewString()
	m.accounts[email] = id
	m.passwords[email] = hash
	return id, nil
}

func (m *Memory) VerifyCredentials(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInvalidCredentials
	}
	email = normalize(email)
	m.mu.RLock()
	hash, okHash := m.passwords[email]
	id, okID := m.accounts[email]
	m.mu.RUnlock()
	if !okHash || !okID || !auth.VerifyPassword(hash, password) {
		return "", ErrInvalidCredentials
	}
	return id, nil
}

func (m *Memory) GetProfile(ctx context.Context, id string) (*model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *Memory) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Email != nil {
		p.Email = normalize(*u.Email)
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	p.UpdatedAt = time.Now().UTC()
	m.profiles[id] = p
	cp := p
	return &cp, nil
}

func (m *Memory) UpsertProfile(ctx context.Context, ident model.Identity) (*model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	ident.Email = normalize(ident.Email)
	if prev, ok := m.profiles[ident.ID]; ok {
		ident.CreatedAt = prev.CreatedAt
	} else {
		ident.CreatedAt = now
	}
	ident.UpdatedAt = now
	m.profiles[ident.ID] = ident
	cp := ident
	return &cp, nil
}

func (m *Memory) ListProfiles(ctx context.Context, offset, limit int) ([]model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := make([]model.Identity, 0, len(m.profiles))
	for _, p := range m.profiles {
		all = append(all, p)
	}
	m.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []model.Identity{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}
