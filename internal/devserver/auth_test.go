// ABOUTME: Tests for dev server accounts and token issuance.
// ABOUTME: Uses the minimum bcrypt cost to keep hashing fast.
package devserver

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fastUsers() *Users {
	u := NewUsers()
	u.cost = bcrypt.MinCost
	return u
}

func TestUsersAddAndAuthenticate(t *testing.T) {
	u := fastUsers()
	require.NoError(t, u.Add("Alice", "pw", RoleAdmin))

	name, role, err := u.Authenticate("alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, RoleAdmin, role)

	_, _, err = u.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidLogin)
	_, _, err = u.Authenticate("bob", "pw")
	assert.ErrorIs(t, err, ErrInvalidLogin)
}

func TestUsersRejectDuplicatesAndBlanks(t *testing.T) {
	u := fastUsers()
	require.NoError(t, u.Add("carol", "pw", ""))
	assert.ErrorIs(t, u.Add("CAROL", "other", RoleUser), ErrUserExists)
	assert.Error(t, u.Add("  ", "pw", RoleUser))
	assert.Error(t, u.Add("dave", "", RoleUser))

	_, role, err := u.Authenticate("carol", "pw")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)
}

func TestTokensRoundTrip(t *testing.T) {
	tk, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	signed, err := tk.Issue("alice", RoleAdmin)
	require.NoError(t, err)

	p, err := tk.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, Principal{Name: "alice", Role: RoleAdmin}, p)
	assert.True(t, p.IsAdmin())

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(signed, claims)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["name"])
	assert.Equal(t, "alice", claims["sub"])
	assert.NotEmpty(t, claims["jti"])
	assert.NotNil(t, claims["exp"])
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	tk, err := NewTokens("secret", time.Minute)
	require.NoError(t, err)
	signed, err := tk.Issue("alice", RoleUser)
	require.NoError(t, err)

	tk.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = tk.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokens("different", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue("mallory", RoleAdmin)
	require.NoError(t, err)
	tk.now = time.Now
	_, err = tk.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokensRequiresSecret(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	assert.Error(t, err)
}
