package auth

import (
	"context"
	"testing"
	"time"

	"resolveflow/backend/internal/apperr"
	"resolveflow/backend/internal/models"
	"resolveflow/backend/internal/storage"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "ResolveFlow", time.Hour)
	user := &models.User{ID: "u1", Roles: pq.StringArray{"agent"}}

	token, err := m.GenerateToken(user)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, []string{"agent"}, claims.Roles)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", "ResolveFlow", time.Hour)
	user := &models.User{ID: "u1"}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other", "ResolveFlow", time.Hour)
		token, _ := other.GenerateToken(user)
		_, err := m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTManager("secret", "someone-else", time.Hour)
		token, _ := other.GenerateToken(user)
		_, err := m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewJWTManager("secret", "ResolveFlow", time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _ := past.GenerateToken(user)
		_, err := m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := m.ValidateToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))
	assert.Equal(t, "", BearerToken(""))
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	user := &models.User{Name: "Agent", Email: "agent@example.com", Roles: pq.StringArray{"agent"}}
	require.NoError(t, store.SaveUser(ctx, user))

	jwtm := NewJWTManager("secret", "ResolveFlow", time.Hour)
	a := NewAuthenticator(jwtm, store)

	token, _ := jwtm.GenerateToken(user)
	actor, err := a.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)
	assert.True(t, actor.IsAgent())

	_, err = a.Authenticate(ctx, "")
	assert.Equal(t, "token_missing", apperr.Code(err))

	ghost, _ := jwtm.GenerateToken(&models.User{ID: "ghost"})
	_, err = a.Authenticate(ctx, ghost)
	assert.Equal(t, "unknown_user", apperr.Code(err))
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	require.NoError(t, store.BlockUser(ctx, user.ID, 0))
	_, err = a.Authenticate(ctx, token)
	assert.Equal(t, "blocked", apperr.Code(err))
}
