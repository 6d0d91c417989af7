package ports

import (
	"context"
	"testing"
	"time"

	"github.com/parleyio/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests verifying that a StateStore
// implementation adheres to the interface contract, including the
// optimistic-concurrency etag rules every adapter must honor.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	key := ConversationKey("contract-" + time.Now().Format("20060102150405"))

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, _, err := store.Get(ctx, "missing-"+key)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Create and Get", func(t *testing.T) {
		etag, err := store.Put(ctx, key, []byte(`{"n":1}`), "")
		require.NoError(t, err, "initial Put should not return error")
		require.NotEmpty(t, etag, "Put must return a non-empty etag")

		value, got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"n":1}`, string(value))
		assert.Equal(t, etag, got)
	})

	t.Run("Create Twice Conflicts", func(t *testing.T) {
		_, err := store.Put(ctx, key, []byte(`{"n":2}`), "")
		assert.ErrorIs(t, err, domain.ErrConflict, "empty-etag Put on an existing key must conflict")
	})

	t.Run("Conditional Update", func(t *testing.T) {
		_, etag, err := store.Get(ctx, key)
		require.NoError(t, err)

		next, err := store.Put(ctx, key, []byte(`{"n":3}`), etag)
		require.NoError(t, err)
		assert.NotEqual(t, etag, next, "etag must change on every write")

		// The old etag is stale now.
		_, err = store.Put(ctx, key, []byte(`{"n":4}`), etag)
		assert.ErrorIs(t, err, domain.ErrConflict)

		value, _, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"n":3}`, string(value), "a losing write must persist nothing")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))

		_, _, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		// Deleting a missing key is not an error.
		assert.NoError(t, store.Delete(ctx, key))
	})

	t.Run("Recreate After Delete", func(t *testing.T) {
		_, err := store.Put(ctx, key, []byte(`{"n":5}`), "")
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, key))
	})
}
