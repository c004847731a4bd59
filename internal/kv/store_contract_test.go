package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "nonexistent")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "products", []byte(`[{"id":"p1"}]`)))

		data, err := store.Get(ctx, "products")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"p1"}]`, string(data))
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "orders", []byte(`[]`)))
		require.NoError(t, store.Set(ctx, "orders", []byte(`[{"id":"o1"}]`)))

		data, err := store.Get(ctx, "orders")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"o1"}]`, string(data))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "currentUser", []byte(`{"id":"admin-1"}`)))
		require.NoError(t, store.Delete(ctx, "currentUser"))

		_, err := store.Get(ctx, "currentUser")
		assert.ErrorIs(t, err, ErrKeyNotFound)

		// Deleting non-existent key should not error
		assert.NoError(t, store.Delete(ctx, "currentUser"))
	})

	t.Run("json helpers", func(t *testing.T) {
		empty, err := LoadJSON[[]entry](ctx, store, "cart_nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)

		require.NoError(t, SaveJSON(ctx, store, "cart_user1", []entry{{ID: "p1", Count: 2}}))
		loaded, err := LoadJSON[[]entry](ctx, store, "cart_user1")
		require.NoError(t, err)
		assert.Equal(t, []entry{{ID: "p1", Count: 2}}, loaded)
	})

	t.Run("corrupted value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "broken", []byte(`[{"id":`)))

		_, err := LoadJSON[[]entry](ctx, store, "broken")
		require.ErrorContains(t, err, "unmarshal broken failed")
	})
}
