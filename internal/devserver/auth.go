// ABOUTME: Dev server accounts and tokens: bcrypt-hashed users and HS256 JWT issuance.
// ABOUTME: Tokens carry name, role, sub, jti, and exp claims.
package devserver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidLogin = errors.New("invalid username or password")
	ErrInvalidToken = errors.New("invalid token")
)

type account struct {
	name string
	hash []byte
	role string
}

// Users is an in-memory account list. Names compare case-insensitively.
type Users struct {
	mu       sync.RWMutex
	accounts map[string]account
	cost     int
}

// NewUsers returns an empty account list.
func NewUsers() *Users {
	return &Users{accounts: make(map[string]account), cost: bcrypt.DefaultCost}
}

// Add registers name with password and role.
func (u *Users) Add(name, password, role string) error {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	if role == "" {
		role = RoleUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	key := strings.ToLower(name)
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.accounts[key]; ok {
		return ErrUserExists
	}
	u.accounts[key] = account{name: name, hash: hash, role: role}
	return nil
}

// Authenticate checks credentials and returns the stored name and role.
func (u *Users) Authenticate(name, password string) (string, string, error) {
	u.mu.RLock()
	acct, ok := u.accounts[strings.ToLower(strings.TrimSpace(name))]
	u.mu.RUnlock()
	if !ok {
		return "", "", ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return "", "", ErrInvalidLogin
	}
	return acct.name, acct.role, nil
}

// Principal is the caller identified by a bearer token.
type Principal struct {
	Name string
	Role string
}

// IsAdmin reports whether the caller holds the Admin role.
func (p Principal) IsAdmin() bool {
	return strings.EqualFold(p.Role, RoleAdmin)
}

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token service. The secret must not be empty.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT signing key cannot be empty")
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for name with role.
func (t *Tokens) Issue(name, role string) (string, error) {
	now := t.now()
	c := &claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the caller.
func (t *Tokens) Verify(token string) (Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Name == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{Name: c.Name, Role: c.Role}, nil
}
