package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accio/servicemeow/internal/domain"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15, 24)
	user := &domain.User{ID: uuid.New(), Role: domain.UserRoleManager}

	token, expiresAt, err := tm.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleManager, claims.Role)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestTokenTypeIsEnforced(t *testing.T) {
	tm := NewTokenManager("secret", 15, 24)
	user := &domain.User{ID: uuid.New(), Role: domain.UserRoleAgent}

	refresh, _, err := tm.GenerateRefreshToken(user)
	require.NoError(t, err)

	_, err = tm.ParseToken(refresh, TokenTypeAccess)
	assert.Error(t, err)

	claims, err := tm.ParseToken(refresh, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
}

func TestExpiredAndForeignTokensRejected(t *testing.T) {
	tm := NewTokenManager("secret", 15, 24)
	user := &domain.User{ID: uuid.New(), Role: domain.UserRoleAdmin}

	token, _, err := tm.GenerateAccessToken(user)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = tm.ParseToken(token, TokenTypeAccess)
	assert.Error(t, err)

	other := NewTokenManager("other-secret", 15, 24)
	token, _, err = other.GenerateAccessToken(user)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 15, 24).ParseToken(token, TokenTypeAccess)
	assert.Error(t, err)
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey(4)
	require.NoError(t, err)

	assert.Regexp(t, `^asm_[0-9a-f]{40}$`, key.Plain)
	assert.Equal(t, key.Plain[:8], key.Prefix)
	assert.NoError(t, ComparePassword(key.Hash, key.Plain))
	assert.Error(t, ComparePassword(key.Hash, key.Plain+"x"))
}
