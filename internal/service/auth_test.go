package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type memoryTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (m *memoryTokenStore) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = make(map[string]time.Duration)
	}
	m.revoked[id] = ttl
	return nil
}

func (m *memoryTokenStore) IsRevoked(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok, nil
}

func registerRequest(username string) *types.RegisterRequest {
	return &types.RegisterRequest{
		Email:     username + "@Example.com",
		Username:  username,
		FirstName: "Vasya",
		LastName:  "Pupkin",
		Password:  "supersecret",
	}
}

func TestRegister(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewAuthService(db, testSecret, time.Hour, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerRequest("vasya"))
	require.NoError(t, err)
	assert.Equal(t, "vasya@example.com", user.Email)
	assert.NotEqual(t, "supersecret", user.PasswordHash)

	_, err = svc.Register(ctx, registerRequest("vasya"))
	assertKind(t, err, ErrAlreadyExists)

	other := registerRequest("petya")
	other.Email = "VASYA@example.com"
	_, err = svc.Register(ctx, other)
	assertKind(t, err, ErrAlreadyExists)
}

func TestLoginAndValidate(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	store := &memoryTokenStore{}
	svc := NewAuthService(db, testSecret, time.Hour, store)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "cook")

	_, err := svc.Login(ctx, user.Email, "wrong password")
	assertKind(t, err, ErrValidation)
	_, err = svc.Login(ctx, "nobody@example.com", testhelpers.TestPassword)
	assertKind(t, err, ErrValidation)

	token, err := svc.Login(ctx, "COOK@example.com", testhelpers.TestPassword)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "cook", claims.Username)

	_, err = NewAuthService(db, "another-secret-that-is-long-enough!!", time.Hour, nil).ValidateToken(ctx, token)
	assertKind(t, err, ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, claims))
	assert.Contains(t, store.revoked, claims.ID)
	_, err = svc.ValidateToken(ctx, token)
	assertKind(t, err, ErrUnauthorized)
}

func TestValidateExpiredToken(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewAuthService(db, testSecret, time.Millisecond, nil)
	user := testhelpers.CreateUser(t, db, "cook")

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = svc.ValidateToken(context.Background(), token)
	assertKind(t, err, ErrUnauthorized)
}

func TestSetPassword(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	svc := NewAuthService(db, testSecret, time.Hour, nil)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "cook")

	err := svc.SetPassword(ctx, user.ID, "not it", "brandnewpassword")
	assertKind(t, err, ErrValidation)

	require.NoError(t, svc.SetPassword(ctx, user.ID, testhelpers.TestPassword, "brandnewpassword"))

	_, err = svc.Login(ctx, user.Email, testhelpers.TestPassword)
	assertKind(t, err, ErrValidation)
	_, err = svc.Login(ctx, user.Email, "brandnewpassword")
	assert.NoError(t, err)
}
