// ABOUTME: Process-wide signed-in session: bearer token, user name, and role.
// ABOUTME: Persists through the storage session file and reads claims from the token itself.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389-research/adboard/internal/models"
	"github.com/2389-research/adboard/internal/storage"
)

// RoleAdmin may edit or delete any listing.
const RoleAdmin = "Admin"

// ErrNoToken is returned by Set when the login result carries no token.
var ErrNoToken = errors.New("session: empty token")

// Store persists session data.
type Store interface {
	Load() (storage.SessionData, error)
	Save(storage.SessionData) error
	Remove() error
}

// Holder is the current session. It is safe for concurrent use; the remote
// client reads Token on every request.
type Holder struct {
	mu    sync.RWMutex
	store Store
	data  storage.SessionData
	exp   time.Time
	now   func() time.Time
}

// New returns an empty holder backed by store.
func New(store Store) *Holder {
	return &Holder{store: store, now: time.Now}
}

// Init loads the persisted session. An expired token is discarded.
func (h *Holder) Init() error {
	sd, err := h.store.Load()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.data, h.exp = withClaims(sd)
	if h.expiredLocked() {
		h.data, h.exp = storage.SessionData{}, time.Time{}
		return h.store.Remove()
	}
	return nil
}

// Set records a successful login and persists it.
func (h *Holder) Set(res models.LoginResult) error {
	if res.Token == "" {
		return ErrNoToken
	}
	data, exp := withClaims(storage.SessionData{
		Token:    res.Token,
		UserName: res.UserName,
		Role:     res.Role,
	})
	if err := h.store.Save(data); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	h.mu.Lock()
	h.data, h.exp = data, exp
	h.mu.Unlock()
	return nil
}

// Clear signs out and removes the persisted session.
func (h *Holder) Clear() error {
	h.mu.Lock()
	h.data, h.exp = storage.SessionData{}, time.Time{}
	h.mu.Unlock()
	return h.store.Remove()
}

// Token returns the bearer token, or "" when signed out or expired. It has
// the shape of storage.TokenSource.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.expiredLocked() {
		return ""
	}
	return h.data.Token
}

func (h *Holder) UserName() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data.UserName
}

func (h *Holder) Role() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data.Role
}

// ExpiresAt returns the token expiry, or the zero time if it has none.
func (h *Holder) ExpiresAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exp
}

func (h *Holder) IsAuthenticated() bool {
	return h.Token() != ""
}

// IsAdmin reports whether the signed-in user holds the Admin role.
func (h *Holder) IsAdmin() bool {
	return h.IsAuthenticated() && strings.EqualFold(h.Role(), RoleAdmin)
}

func (h *Holder) expiredLocked() bool {
	return !h.exp.IsZero() && !h.now().Before(h.exp)
}

// withClaims fills missing name and role from the token's claims and
// returns its expiry. The signature is not checked here; the server does
// that on every request.
func withClaims(sd storage.SessionData) (storage.SessionData, time.Time) {
	if sd.Token == "" {
		return sd, time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(sd.Token, claims); err != nil {
		return sd, time.Time{}
	}
	if sd.UserName == "" {
		sd.UserName = stringClaim(claims, "name", "unique_name", "sub")
	}
	if sd.Role == "" {
		sd.Role = stringClaim(claims, "role")
	}
	var exp time.Time
	if nd, err := claims.GetExpirationTime(); err == nil && nd != nil {
		exp = nd.Time
	}
	return sd, exp
}

func stringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
