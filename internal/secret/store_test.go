package secret_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-bo/meridian/internal/secret"
)

func newStore(t *testing.T) (*secret.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return secret.NewStore(client), mr
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", value)

	has, err := store.Has(ctx, "k")
	require.NoError(t, err)
	require.True(t, has)
}

func TestStoreExpiry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	has, err := store.Has(ctx, "k")
	require.NoError(t, err)
	require.False(t, has)
}

func TestStoreOverwriteResetsExpiry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "old", time.Second))
	require.NoError(t, store.Set(ctx, "k", "new", time.Minute))
	mr.FastForward(2 * time.Second)

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new", value)
}

func TestStoreDeleteAbsentKey(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "missing"))

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeyFormats(t *testing.T) {
	require.Equal(t, "email_code_a@x.com", secret.EmailCodeKey("a@x.com"))
	require.Equal(t, "oauth_code_app1_c1", secret.OAuthCodeKey("app1", "c1"))
	require.Equal(t, "cookie_code_abc", secret.CookieKey("abc"))
}
