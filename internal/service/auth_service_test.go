package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accio/servicemeow/internal/auth"
	"github.com/accio/servicemeow/internal/config"
	"github.com/accio/servicemeow/internal/domain"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

type fakeAPIKeyRepo struct {
	keys    []domain.APIKey
	touched []uuid.UUID
}

func (f *fakeAPIKeyRepo) Create(_ context.Context, key *domain.APIKey) error {
	key.ID = uuid.New()
	f.keys = append(f.keys, *key)
	return nil
}

func (f *fakeAPIKeyRepo) ListByPrefix(_ context.Context, prefix string) ([]domain.APIKey, error) {
	result := []domain.APIKey{}
	for _, key := range f.keys {
		if key.KeyPrefix == prefix && key.IsActive {
			result = append(result, key)
		}
	}
	return result, nil
}

func (f *fakeAPIKeyRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.APIKey, error) {
	result := []domain.APIKey{}
	for _, key := range f.keys {
		if key.UserID == userID {
			result = append(result, key)
		}
	}
	return result, nil
}

func (f *fakeAPIKeyRepo) Deactivate(_ context.Context, id, userID uuid.UUID) error {
	for i := range f.keys {
		if f.keys[i].ID == id && f.keys[i].UserID == userID {
			f.keys[i].IsActive = false
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeAPIKeyRepo) TouchLastUsed(_ context.Context, id uuid.UUID) error {
	f.touched = append(f.touched, id)
	return nil
}

var testAuthConfig = config.AuthConfig{
	JWTSecret:             "test-secret",
	AccessTokenTTLMinutes: 15,
	RefreshTokenTTLHours:  24,
	BcryptCost:            4,
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, *fakeAPIKeyRepo, *fakeClock, *domain.User) {
	t.Helper()
	users := newFakeUserRepo()
	keys := &fakeAPIKeyRepo{}
	clock := &fakeClock{now: time.Now().UTC()}

	user := users.add("agent", "Agent Smith", domain.UserRoleAgent)
	hash, err := auth.HashPassword("secret", testAuthConfig.BcryptCost)
	require.NoError(t, err)
	users.users[user.ID].PasswordHash = hash

	svc := NewAuthService(testAuthConfig, AuthDependencies{UserRepo: users, APIKeyRepo: keys, Clock: clock.Now})
	return svc, users, keys, clock, user
}

func TestLoginAndRefresh(t *testing.T) {
	svc, users, _, _, user := newAuthFixture(t)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "agent", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, pair.User.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.TokenManager().ParseToken(pair.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(ctx, "agent", "wrong")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	_, err = svc.Login(ctx, "nobody", "secret")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	users.users[user.ID].IsActive = false
	_, err = svc.Login(ctx, "agent", "secret")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestAPIKeyLifecycle(t *testing.T) {
	svc, users, keys, clock, user := newAuthFixture(t)
	ctx := context.Background()

	created, err := svc.CreateAPIKey(ctx, user.ID, "ci", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^asm_[0-9a-f]{40}$`, created.PlainKey)
	assert.NotEqual(t, created.PlainKey, created.Key.KeyHash)

	owner, key, err := svc.VerifyAPIKey(ctx, created.PlainKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner.ID)
	assert.Equal(t, created.Key.ID, key.ID)
	assert.Equal(t, []uuid.UUID{key.ID}, keys.touched)

	_, _, err = svc.VerifyAPIKey(ctx, created.PlainKey[:len(created.PlainKey)-1]+"x")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	users.users[user.ID].IsActive = false
	_, _, err = svc.VerifyAPIKey(ctx, created.PlainKey)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	users.users[user.ID].IsActive = true

	require.NoError(t, svc.RevokeAPIKey(ctx, user.ID, created.Key.ID))
	_, _, err = svc.VerifyAPIKey(ctx, created.PlainKey)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	err = svc.RevokeAPIKey(ctx, user.ID, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	expiry := clock.now.Add(time.Hour)
	expiring, err := svc.CreateAPIKey(ctx, user.ID, "temp", &expiry)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	_, _, err = svc.VerifyAPIKey(ctx, expiring.PlainKey)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	past := clock.now.Add(-time.Minute)
	_, err = svc.CreateAPIKey(ctx, user.ID, "old", &past)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestChangeOwnPassword(t *testing.T) {
	svc, _, _, _, user := newAuthFixture(t)
	ctx := context.Background()

	err := svc.ChangeOwnPassword(ctx, user.ID, "wrong", "newpass")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))

	err = svc.ChangeOwnPassword(ctx, user.ID, "secret", "abc")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	require.NoError(t, svc.ChangeOwnPassword(ctx, user.ID, "secret", "newpass"))
	_, err = svc.Login(ctx, "agent", "newpass")
	assert.NoError(t, err)
}
