package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

var (
	// ErrGrantNotFound indicates the access key does not map to an unused grant.
	ErrGrantNotFound = errors.New("upload grant not found")
	// ErrGrantExpired indicates the grant outlived its TTL.
	ErrGrantExpired = errors.New("upload grant expired")
	// ErrGrantScope indicates the grant was presented for a different object.
	ErrGrantScope = errors.New("upload grant does not cover object")
)

// GrantStore persists issued upload grants so they survive process restarts.
// Take must remove and return the grant atomically so a grant can be redeemed
// at most once.
type GrantStore interface {
	Save(ctx context.Context, grant Grant) error
	Find(ctx context.Context, token string) (Grant, error)
	Take(ctx context.Context, token string) (Grant, error)
}

// Grant authorises a single write of one object key.
type Grant struct {
	Token     string
	AssetID   string
	ObjectKey string
	ExpiresAt time.Time
}

// Manager issues and redeems single-use upload grants.
type Manager struct {
	ttl   time.Duration
	store GrantStore
	now   func() time.Time
}

// NewManager constructs a Manager whose grants expire after ttl.
func NewManager(ttl time.Duration, store GrantStore) *Manager {
	if store == nil {
		panic("auth: grant store must not be nil")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{ttl: ttl, store: store, now: func() time.Time { return time.Now().UTC() }}
}

// TTL returns the lifetime of newly issued grants.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue creates a grant for writing objectKey on behalf of assetID.
func (m *Manager) Issue(ctx context.Context, assetID, objectKey string) (Grant, error) {
	if strings.TrimSpace(objectKey) == "" {
		return Grant{}, errors.New("object key must be provided")
	}

	token, err := randomToken()
	if err != nil {
		return Grant{}, err
	}

	grant := Grant{
		Token:     token,
		AssetID:   assetID,
		ObjectKey: objectKey,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.Save(ctx, grant); err != nil {
		return Grant{}, err
	}
	return grant, nil
}

// Authorize checks that token is a live grant for objectKey without consuming it.
func (m *Manager) Authorize(ctx context.Context, token, objectKey string) (Grant, error) {
	if token == "" {
		return Grant{}, ErrGrantNotFound
	}

	grant, err := m.store.Find(ctx, token)
	if err != nil {
		return Grant{}, err
	}

	if m.now().After(grant.ExpiresAt) {
		_, _ = m.store.Take(ctx, token)
		return Grant{}, ErrGrantExpired
	}
	if grant.ObjectKey != objectKey {
		return Grant{}, ErrGrantScope
	}
	return grant, nil
}

// Redeem consumes the grant. A grant that was already redeemed by a
// concurrent writer yields ErrGrantNotFound.
func (m *Manager) Redeem(ctx context.Context, token, objectKey string) (Grant, error) {
	if _, err := m.Authorize(ctx, token, objectKey); err != nil {
		return Grant{}, err
	}
	return m.store.Take(ctx, token)
}

// Release returns a redeemed grant to the store after a failed write so the
// holder can retry. Expired grants are dropped.
func (m *Manager) Release(ctx context.Context, grant Grant) error {
	if grant.Token == "" || m.now().After(grant.ExpiresAt) {
		return nil
	}
	return m.store.Save(ctx, grant)
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
