package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func TestMongoStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoStore(db)
	t.Cleanup(func() { store.Close() })

	runStoreContract(t, store)
}

type fakeMongoClient struct {
	pingErr       error
	disconnectErr error
	disconnects   int
}

func (f *fakeMongoClient) Ping(context.Context, *readpref.ReadPref) error {
	return f.pingErr
}

func (f *fakeMongoClient) Disconnect(context.Context) error {
	f.disconnects++
	return f.disconnectErr
}

func TestPingOrDisconnect(t *testing.T) {
	refused := errors.New("connection refused")

	t.Run("reachable server keeps the client", func(t *testing.T) {
		client := &fakeMongoClient{}
		require.NoError(t, pingOrDisconnect(context.Background(), client))
		assert.Zero(t, client.disconnects)
	})

	t.Run("failed ping disconnects", func(t *testing.T) {
		client := &fakeMongoClient{pingErr: refused}
		err := pingOrDisconnect(context.Background(), client)
		assert.ErrorIs(t, err, refused)
		assert.Equal(t, 1, client.disconnects)
	})

	t.Run("disconnect error is reported with the ping error", func(t *testing.T) {
		closing := errors.New("pool busy")
		client := &fakeMongoClient{pingErr: refused, disconnectErr: closing}
		err := pingOrDisconnect(context.Background(), client)
		assert.ErrorIs(t, err, refused)
		assert.ErrorIs(t, err, closing)
	})

	t.Run("cancelled caller still disconnects", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client := &fakeMongoClient{pingErr: context.Canceled}
		assert.Error(t, pingOrDisconnect(ctx, client))
		assert.Equal(t, 1, client.disconnects)
	})
}

func TestConnectMongoDB_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	db, err := ConnectMongoDB(ctx, "mongodb://127.0.0.1:1/?connect=direct", "storefront")
	assert.ErrorContains(t, err, "failed to ping MongoDB")
	assert.Nil(t, db)
}
