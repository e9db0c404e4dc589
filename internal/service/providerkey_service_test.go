package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/repository"
)

func newKeyService(t *testing.T) *ProviderKeyService {
	t.Helper()
	repo := repository.NewProviderKeyRepository(testDB(t))
	return NewProviderKeyService(repo, "unit-test-secret")
}

func TestProviderKeyRoundTrip(t *testing.T) {
	svc := newKeyService(t)
	ctx := context.Background()

	stored, err := svc.Upsert(ctx, "openai", "sk-secret-123")
	require.NoError(t, err)
	assert.Equal(t, "openai", stored.ProviderName)
	assert.NotContains(t, stored.EncryptedKey, "sk-secret-123",
		"key must not be stored in the clear")

	key, err := svc.GetDecrypted(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-123", key)

	// Upsert replaces, never duplicates.
	_, err = svc.Upsert(ctx, "openai", "sk-rotated-456")
	require.NoError(t, err)
	key, err = svc.GetDecrypted(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-rotated-456", key)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	require.NoError(t, svc.Delete(ctx, "openai"))
	keys, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyResolverPrefersStoredKey(t *testing.T) {
	svc := newKeyService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "openai", "sk-from-store")
	require.NoError(t, err)

	resolver := NewKeyResolver(svc, "sk-from-env", false)
	key, err := resolver.Resolve(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-store", key)
}

func TestKeyResolverFallsBackToEnv(t *testing.T) {
	resolver := NewKeyResolver(newKeyService(t), "sk-from-env", false)

	key, err := resolver.Resolve(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", key)
}

func TestKeyResolverAllowsEmptyForLocalServers(t *testing.T) {
	resolver := NewKeyResolver(newKeyService(t), "", true)

	key, err := resolver.Resolve(context.Background(), "openai")
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestKeyResolverErrsWithoutAnySource(t *testing.T) {
	resolver := NewKeyResolver(newKeyService(t), "", false)

	_, err := resolver.Resolve(context.Background(), "openai")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
