package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	store := NewRedisStore(client, "storefront")
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := setupTestRedis(t)
	runStoreContract(t, store)
}

func TestRedisStore_KeyPrefixAndNoTTL(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, store.Set(context.Background(), "cart_customer-1", []byte("[]")))

	assert.True(t, mr.Exists("storefront:cart_customer-1"))
	assert.Zero(t, mr.TTL("storefront:cart_customer-1"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Get(context.Background(), "products")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
	assert.Contains(t, err.Error(), "redis get failed")
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = ConnectRedis(context.Background(), mr.Addr(), "", 0)
	assert.ErrorContains(t, err, "redis ping failed")
}
