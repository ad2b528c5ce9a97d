package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	keys map[string]*APIKeyInfo
	err  error
}

func (m *mockRepo) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	info, ok := m.keys[hash]
	if !ok {
		return nil, ErrUnauthorized
	}
	return info, nil
}

func TestHashKey(t *testing.T) {
	a := HashKey([]byte("pepper"), "secret")
	b := HashKey([]byte("pepper"), "secret")
	c := HashKey([]byte("other"), "secret")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestAuthenticator_Authenticate(t *testing.T) {
	pepper := []byte("pepper")
	hash := HashKey(pepper, "good-key")
	repo := &mockRepo{keys: map[string]*APIKeyInfo{
		hash: {ID: "k1", KeyHash: hash, Name: "pos", Scopes: []string{ScopeOrdersWrite}},
	}}
	a := NewAuthenticator(repo, pepper)

	info, err := a.Authenticate(context.Background(), "good-key")
	require.NoError(t, err)
	assert.Equal(t, "k1", info.ID)
	assert.True(t, info.HasScope(ScopeOrdersWrite))
	assert.False(t, info.HasScope(ScopeOrdersAdmin))

	_, err = a.Authenticate(context.Background(), "bad-key")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticator_RepositoryError(t *testing.T) {
	a := NewAuthenticator(&mockRepo{err: errors.New("db down")}, []byte("p"))

	_, err := a.Authenticate(context.Background(), "key")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "db down")
}

func TestContextKey(t *testing.T) {
	_, ok := KeyFrom(context.Background())
	assert.False(t, ok)

	info := &APIKeyInfo{ID: "k1"}
	got, ok := KeyFrom(WithKey(context.Background(), info))
	require.True(t, ok)
	assert.Same(t, info, got)
}
