//go:build integration

package tagscript

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts an ephemeral PostgreSQL container and returns
// its connection string.
func setupPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("tagscript_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return connStr
}

var prefixCounter atomic.Int64

// uniquePrefix isolates the tables of one test within a shared database.
func uniquePrefix() string {
	return fmt.Sprintf("t%d_", prefixCounter.Add(1))
}

func postgresConfig(connStr string) PostgresConfig {
	return PostgresConfig{
		ConnectionString: connStr,
		TablePrefix:      uniquePrefix(),
		AutoMigrate:      true,
		QueryTimeout:     30 * time.Second,
	}
}

func TestPostgres_E2E_TagStorage(t *testing.T) {
	connStr := setupPostgresContainer(t)

	testTagStorage(t, func(t *testing.T) TagStorage {
		storage, err := NewPostgresStorage(postgresConfig(connStr))
		require.NoError(t, err)
		t.Cleanup(func() { _ = storage.Close() })
		return storage
	})

	t.Run("migrations", func(t *testing.T) {
		storage, err := NewPostgresStorage(postgresConfig(connStr))
		require.NoError(t, err)
		defer storage.Close()

		ctx := context.Background()
		version, err := storage.CurrentSchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, version)

		require.NoError(t, storage.RunMigrations(ctx), "migrations are idempotent")
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		storage, err := NewPostgresStorage(postgresConfig(connStr))
		require.NoError(t, err)
		defer storage.Close()

		ctx := context.Background()
		require.NoError(t, storage.Save(ctx, &StoredTag{Name: "a_b", Content: "x"}))
		require.NoError(t, storage.Save(ctx, &StoredTag{Name: "axb", Content: "x"}))

		tags, err := storage.List(ctx, &TagQuery{NameContains: "_"})
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "a_b", tags[0].Name)
	})

	t.Run("driver", func(t *testing.T) {
		storage, err := OpenStorage(StorageDriverNamePostgres, connStr)
		require.NoError(t, err)
		defer storage.Close()
		assert.IsType(t, &PostgresStorage{}, storage)
	})

	t.Run("process stored tag", func(t *testing.T) {
		storage, err := NewPostgresStorage(postgresConfig(connStr))
		require.NoError(t, err)
		defer storage.Close()

		ctx := context.Background()
		require.NoError(t, storage.Save(ctx, &StoredTag{Name: "roll", Content: "{tag} rolled {range(fixed):1-1}"}))

		resp, err := MustNew().ProcessStored(ctx, storage, "roll", nil)
		require.NoError(t, err)
		assert.Equal(t, "roll rolled 1", resp.Body)

		tag, err := storage.Get(ctx, "roll")
		require.NoError(t, err)
		assert.Equal(t, int64(1), tag.Uses)
	})
}

func TestPostgres_E2E_CooldownStore(t *testing.T) {
	connStr := setupPostgresContainer(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	open := func(t *testing.T) *PostgresCooldownStore {
		store, err := NewPostgresCooldownStore(postgresConfig(connStr))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	}

	t.Run("token bucket", func(t *testing.T) {
		store := open(t)
		for i := 0; i < 2; i++ {
			retry, err := store.Take(ctx, "ns", "k", 2, 10*time.Second, now)
			require.NoError(t, err)
			assert.Zero(t, retry)
		}

		retry, err := store.Take(ctx, "ns", "k", 2, 10*time.Second, now.Add(4*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 6*time.Second, retry)

		retry, err = store.Take(ctx, "ns", "k", 2, 10*time.Second, now.Add(11*time.Second))
		require.NoError(t, err)
		assert.Zero(t, retry)
	})

	t.Run("changed rate resets namespace", func(t *testing.T) {
		store := open(t)
		_, err := store.Take(ctx, "ns", "k", 1, time.Minute, now)
		require.NoError(t, err)

		retry, err := store.Take(ctx, "ns", "k", 3, time.Minute, now)
		require.NoError(t, err)
		assert.Zero(t, retry)
	})

	t.Run("concurrent takes never exceed the rate", func(t *testing.T) {
		store := open(t)
		const rate = 3

		var (
			wg      sync.WaitGroup
			granted atomic.Int64
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				retry, err := store.Take(ctx, "ns", "k", rate, time.Minute, now)
				assert.NoError(t, err)
				if retry == 0 {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int64(rate), granted.Load())
	})

	t.Run("purge", func(t *testing.T) {
		store := open(t)
		_, err := store.Take(ctx, "ns", "old", 1, time.Minute, now)
		require.NoError(t, err)
		_, err = store.Take(ctx, "ns", "new", 1, time.Minute, now.Add(time.Hour))
		require.NoError(t, err)

		purged, err := store.Purge(ctx, now.Add(30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)
	})

	t.Run("shared by interpreters", func(t *testing.T) {
		store := open(t)
		first := MustNew(WithCooldownStore(store))
		second := MustNew(WithCooldownStore(store))

		_, err := first.Process(ctx, "{cooldown(1,60):k}", nil, WithCooldownKey("tag"))
		require.NoError(t, err)
		_, err = second.Process(ctx, "{cooldown(1,60):k}", nil, WithCooldownKey("tag"))
		assert.True(t, IsCooldownExceeded(err))
	})

	t.Run("closed", func(t *testing.T) {
		store := open(t)
		require.NoError(t, store.Close())
		_, err := store.Take(ctx, "ns", "k", 1, time.Minute, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgStorageClosed)
	})
}
