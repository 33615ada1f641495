package tagscript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// PostgresCooldownStore keeps cooldown buckets in PostgreSQL so limits hold
// across processes. Rows are locked for the duration of a Take.
type PostgresCooldownStore struct {
	db     *sql.DB
	config PostgresConfig
	mu     sync.RWMutex
	closed bool
}

// NewPostgresCooldownStore opens a PostgreSQL cooldown store.
func NewPostgresCooldownStore(config PostgresConfig) (*PostgresCooldownStore, error) {
	config = config.withDefaults()
	db, err := openPostgres(config)
	if err != nil {
		return nil, err
	}

	store := &PostgresCooldownStore{db: db, config: config}
	if config.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), config.QueryTimeout)
		defer cancel()
		if err := store.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return store, nil
}

func (s *PostgresCooldownStore) namespacesTable() string {
	return s.config.TablePrefix + "cooldown_namespaces"
}

func (s *PostgresCooldownStore) bucketsTable() string {
	return s.config.TablePrefix + "cooldown_buckets"
}

func (s *PostgresCooldownStore) migrationsTable() string {
	return s.config.TablePrefix + "cooldown_migrations"
}

// Take implements CooldownStore.
func (s *PostgresCooldownStore) Take(ctx context.Context, namespace, key string, rate int, per time.Duration, now time.Time) (retryAfter time.Duration, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.queryError(key, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.syncNamespace(ctx, tx, namespace, rate, per); err != nil {
		return 0, s.queryError(key, err)
	}

	var (
		bucket bucketState
		tokens int
		window time.Time
	)
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT tokens, window_start FROM %s
		WHERE namespace = $1 AND bucket_key = $2
		FOR UPDATE`, s.bucketsTable()), namespace, key).Scan(&tokens, &window)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return 0, s.queryError(key, err)
	default:
		bucket = bucketState{Tokens: tokens, Window: window}
	}

	bucket, retryAfter = bucket.take(rate, per, now)

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (namespace, bucket_key, tokens, window_start)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, bucket_key)
		DO UPDATE SET tokens = EXCLUDED.tokens, window_start = EXCLUDED.window_start`, s.bucketsTable()),
		namespace, key, bucket.Tokens, bucket.Window); err != nil {
		return 0, s.queryError(key, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, s.queryError(key, err)
	}
	return retryAfter, nil
}

// syncNamespace locks the namespace row and resets its buckets when the rate
// or period changed.
func (s *PostgresCooldownStore) syncNamespace(ctx context.Context, tx *sql.Tx, namespace string, rate int, per time.Duration) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (namespace, rate, per_ms) VALUES ($1, $2, $3)
		ON CONFLICT (namespace) DO NOTHING`, s.namespacesTable()),
		namespace, rate, per.Milliseconds()); err != nil {
		return err
	}

	var (
		storedRate int
		storedPer  int64
	)
	if err := tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT rate, per_ms FROM %s WHERE namespace = $1 FOR UPDATE`, s.namespacesTable()),
		namespace).Scan(&storedRate, &storedPer); err != nil {
		return err
	}
	if storedRate == rate && storedPer == per.Milliseconds() {
		return nil
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET rate = $2, per_ms = $3 WHERE namespace = $1`, s.namespacesTable()),
		namespace, rate, per.Milliseconds()); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1`, s.bucketsTable()), namespace)
	return err
}

func (s *PostgresCooldownStore) queryError(key string, err error) error {
	return &StorageError{
		Message: ErrMsgPostgresQueryFailed,
		Name:    key,
		Cause:   err,
	}
}

// Purge deletes buckets whose window ended before cutoff.
func (s *PostgresCooldownStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, NewStorageClosedError()
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s b USING %s n
		WHERE b.namespace = n.namespace
		  AND b.window_start + (n.per_ms * INTERVAL '1 millisecond') < $1`,
		s.bucketsTable(), s.namespacesTable()), cutoff)
	if err != nil {
		return 0, s.queryError(StringEmpty, err)
	}
	return res.RowsAffected()
}

// Close releases the connection pool.
func (s *PostgresCooldownStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// RunMigrations applies pending database migrations.
func (s *PostgresCooldownStore) RunMigrations(ctx context.Context) error {
	return runMigrations(ctx, s.db, s.migrationsTable(), s.getMigrations())
}

// CurrentSchemaVersion returns the current schema version.
func (s *PostgresCooldownStore) CurrentSchemaVersion(ctx context.Context) (int, error) {
	return currentSchemaVersion(ctx, s.db, s.migrationsTable())
}

func (s *PostgresCooldownStore) getMigrations() []postgresMigration {
	return []postgresMigration{
		{
			Version:     1,
			Description: "Cooldown namespaces and buckets",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %[1]s (
					namespace TEXT PRIMARY KEY,
					rate      INTEGER NOT NULL,
					per_ms    BIGINT NOT NULL
				);

				CREATE TABLE IF NOT EXISTS %[2]s (
					namespace    TEXT NOT NULL REFERENCES %[1]s(namespace) ON DELETE CASCADE,
					bucket_key   TEXT NOT NULL,
					tokens       INTEGER NOT NULL,
					window_start TIMESTAMP WITH TIME ZONE NOT NULL,
					PRIMARY KEY (namespace, bucket_key)
				);

				CREATE INDEX IF NOT EXISTS idx_%[2]s_window ON %[2]s(window_start);
			`, s.namespacesTable(), s.bucketsTable()),
		},
	}
}
