package identity

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserRepo struct {
	users map[string]*User // hash -> user
	err   error
}

func (m *mockUserRepo) FindByKeyHash(_ context.Context, hash string) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[hash]
	if !ok {
		return nil, ErrUnknownKey
	}
	return u, nil
}

func TestResolver_Resolve(t *testing.T) {
	pepper := []byte("pepper")
	r := NewResolver(nil, pepper)

	hash := r.HashKey("secret-key")
	repo := &mockUserRepo{users: map[string]*User{
		hash: {ID: "u1", Name: "asha", Email: "asha@example.com", KeyHash: hash},
	}}
	r = NewResolver(repo, pepper)

	t.Run("valid key resolves", func(t *testing.T) {
		u, err := r.Resolve(context.Background(), "secret-key")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "other-key")
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("empty key rejected without lookup", func(t *testing.T) {
		failing := NewResolver(&mockUserRepo{err: errors.New("must not be called")}, pepper)
		_, err := failing.Resolve(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("stale stored hash rejected", func(t *testing.T) {
		staleRepo := &mockUserRepo{users: map[string]*User{
			hash: {ID: "u1", KeyHash: r.HashKey("some-other-key")},
		}}
		stale := NewResolver(staleRepo, pepper)
		_, err := stale.Resolve(context.Background(), "secret-key")
		assert.ErrorIs(t, err, ErrUnknownKey)
	})

	t.Run("different pepper produces different hash", func(t *testing.T) {
		other := NewResolver(repo, []byte("other-pepper"))
		assert.NotEqual(t, r.HashKey("secret-key"), other.HashKey("secret-key"))
	})
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	_, ok := UserFromContext(ctx)
	assert.False(t, ok)

	u := &User{ID: "u1", Staff: true}
	got, ok := UserFromContext(WithUser(ctx, u))
	require.True(t, ok)
	assert.Same(t, u, got)
}
