package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/storage"
)

func testUser() model.User {
	return model.User{
		ID:    7,
		UUID:  "b6a2c4e0-0000-4000-8000-000000000007",
		Login: "ivan",
		Name:  "Иван",
		Email: "ivan@example.com",
		Role:  model.RoleBuyer,
	}
}

func TestManager_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	m := NewManager(mem, nil)

	_, ok, err := m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Save(ctx, model.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         testUser(),
	}))

	s, ok, err := m.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "access", s.AccessToken)
	assert.Equal(t, "refresh", s.RefreshToken)
	assert.Equal(t, testUser(), s.User)
	assert.True(t, s.ExpiresAt.IsZero())

	require.NoError(t, m.SetServerAddress(ctx, "http://192.168.1.100:8083"))
	require.NoError(t, m.Clear(ctx))

	_, ok, err = m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		_, err := mem.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound, key)
	}

	addr, err := m.ServerAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.100:8083", addr)
}

func TestManager_LoadRequiresTokenAndUser(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	m := NewManager(mem, nil)

	require.NoError(t, mem.Set(ctx, KeyAccessToken, "access"))
	_, ok, err := m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mem.Set(ctx, KeyUser, "{broken"))
	_, ok, err = m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_SaveUser(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemory(), nil)

	require.NoError(t, m.Save(ctx, model.Session{AccessToken: "a", RefreshToken: "r", User: testUser()}))

	u := testUser()
	u.Phone = "+7 900 000-00-00"
	require.NoError(t, m.SaveUser(ctx, u))

	s, ok, err := m.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "+7 900 000-00-00", s.User.Phone)
	assert.Equal(t, "a", s.AccessToken)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 7,
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	assert.True(t, exp.Equal(TokenExpiry(signed)))
	assert.True(t, TokenExpiry("opaque-token").IsZero())
}
