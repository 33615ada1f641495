package tagscript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// PostgresStorage implements TagStorage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	config PostgresConfig
	mu     sync.RWMutex
	closed bool
}

// PostgresStorageDriver is the driver for creating PostgresStorage instances.
type PostgresStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNamePostgres, &PostgresStorageDriver{})
}

// Open creates a new PostgresStorage instance.
// The connection string should be a PostgreSQL DSN.
func (d *PostgresStorageDriver) Open(connectionString string) (TagStorage, error) {
	config := DefaultPostgresConfig()
	config.ConnectionString = connectionString
	config.AutoMigrate = true
	return NewPostgresStorage(config)
}

// NewPostgresStorage creates a new PostgreSQL tag storage.
func NewPostgresStorage(config PostgresConfig) (*PostgresStorage, error) {
	config = config.withDefaults()
	db, err := openPostgres(config)
	if err != nil {
		return nil, err
	}

	storage := &PostgresStorage{db: db, config: config}
	if config.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), config.QueryTimeout)
		defer cancel()
		if err := storage.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return storage, nil
}

func (s *PostgresStorage) tableName() string {
	return s.config.TablePrefix + "tags"
}

func (s *PostgresStorage) migrationsTableName() string {
	return s.config.TablePrefix + "tag_migrations"
}

const postgresTagColumns = `name, content, description, metadata, author, tenant_id, uses, created_at, updated_at`

// Get retrieves a tag by name.
func (s *PostgresStorage) Get(ctx context.Context, name string) (*StoredTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1`, postgresTagColumns, s.tableName())
	tag, err := scanStoredTag(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewTagNotFoundError(name)
		}
		return nil, &StorageError{Message: ErrMsgPostgresQueryFailed, Name: name, Cause: err}
	}
	return tag, nil
}

// Save creates or replaces a tag.
func (s *PostgresStorage) Save(ctx context.Context, tag *StoredTag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tag == nil {
		return &StorageError{Message: ErrMsgEmptyTagName}
	}
	if err := ValidateTagName(tag.Name); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	metadata, err := json.Marshal(tag.Metadata)
	if err != nil {
		return &StorageError{Message: ErrMsgPostgresUnmarshalFailed, Name: tag.Name, Cause: err}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (name, content, description, metadata, author, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			content     = EXCLUDED.content,
			description = EXCLUDED.description,
			metadata    = EXCLUDED.metadata,
			author      = EXCLUDED.author,
			tenant_id   = EXCLUDED.tenant_id,
			updated_at  = NOW()
		RETURNING uses, created_at, updated_at`, s.tableName())

	var (
		uses      int64
		createdAt time.Time
		updatedAt time.Time
	)
	err = s.db.QueryRowContext(ctx, query,
		tag.Name, tag.Content, nullString(tag.Description), metadata,
		nullString(tag.Author), nullString(tag.TenantID),
	).Scan(&uses, &createdAt, &updatedAt)
	if err != nil {
		return &StorageError{Message: ErrMsgPostgresQueryFailed, Name: tag.Name, Cause: err}
	}

	tag.Uses = uses
	tag.CreatedAt = createdAt
	tag.UpdatedAt = updatedAt
	return nil
}

// Delete removes a tag.
func (s *PostgresStorage) Delete(ctx context.Context, name string) error {
	return s.execOne(ctx, name, fmt.Sprintf(`DELETE FROM %s WHERE name = $1`, s.tableName()))
}

// RecordUse increments the use counter of a tag.
func (s *PostgresStorage) RecordUse(ctx context.Context, name string) error {
	return s.execOne(ctx, name, fmt.Sprintf(`UPDATE %s SET uses = uses + 1 WHERE name = $1`, s.tableName()))
}

// execOne runs a statement that must affect the row of name.
func (s *PostgresStorage) execOne(ctx context.Context, name, query string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, name)
	if err != nil {
		return &StorageError{Message: ErrMsgPostgresQueryFailed, Name: name, Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StorageError{Message: ErrMsgPostgresQueryFailed, Name: name, Cause: err}
	}
	if n == 0 {
		return NewTagNotFoundError(name)
	}
	return nil
}

// List returns tags matching the query.
func (s *PostgresStorage) List(ctx context.Context, query *TagQuery) ([]*StoredTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	var (
		conditions []string
		args       []any
	)
	addCondition := func(clause string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if query != nil {
		if query.TenantID != "" {
			addCondition("tenant_id = $%d", query.TenantID)
		}
		if query.Author != "" {
			addCondition("author = $%d", query.Author)
		}
		if query.NamePrefix != "" {
			addCondition("name LIKE $%d", escapeLike(query.NamePrefix)+"%")
		}
		if query.NameContains != "" {
			addCondition("name LIKE $%d", "%"+escapeLike(query.NameContains)+"%")
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT %s FROM %s`, postgresTagColumns, s.tableName())
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY name")
	if query != nil && query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if query != nil && query.Offset > 0 {
		args = append(args, query.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgPostgresQueryFailed, Cause: err}
	}
	defer rows.Close()

	result := make([]*StoredTag, 0)
	for rows.Next() {
		tag, err := scanStoredTag(rows)
		if err != nil {
			return nil, &StorageError{Message: ErrMsgPostgresQueryFailed, Cause: err}
		}
		result = append(result, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Message: ErrMsgPostgresQueryFailed, Cause: err}
	}
	return result, nil
}

// Exists checks if a tag exists.
func (s *PostgresStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE name = $1)`, s.tableName()), name).Scan(&exists)
	if err != nil {
		return false, &StorageError{Message: ErrMsgPostgresQueryFailed, Name: name, Cause: err}
	}
	return exists, nil
}

// Close releases the connection pool.
func (s *PostgresStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// RunMigrations applies pending database migrations.
func (s *PostgresStorage) RunMigrations(ctx context.Context) error {
	return runMigrations(ctx, s.db, s.migrationsTableName(), s.getMigrations())
}

// CurrentSchemaVersion returns the current schema version.
func (s *PostgresStorage) CurrentSchemaVersion(ctx context.Context) (int, error) {
	return currentSchemaVersion(ctx, s.db, s.migrationsTableName())
}

func (s *PostgresStorage) getMigrations() []postgresMigration {
	return []postgresMigration{
		{
			Version:     1,
			Description: "Initial schema with tags table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %[1]s (
					name        VARCHAR(255) PRIMARY KEY,
					content     TEXT NOT NULL,
					description TEXT,
					metadata    JSONB DEFAULT '{}',
					author      VARCHAR(255),
					tenant_id   VARCHAR(255),
					uses        BIGINT NOT NULL DEFAULT 0,
					created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_%[1]s_tenant_id ON %[1]s(tenant_id) WHERE tenant_id IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_%[1]s_author ON %[1]s(author) WHERE author IS NOT NULL;
			`, s.tableName()),
		},
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStoredTag(row rowScanner) (*StoredTag, error) {
	var (
		tag          StoredTag
		description  sql.NullString
		metadataJSON []byte
		author       sql.NullString
		tenantID     sql.NullString
	)
	err := row.Scan(&tag.Name, &tag.Content, &description, &metadataJSON,
		&author, &tenantID, &tag.Uses, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
		if err := json.Unmarshal(metadataJSON, &tag.Metadata); err != nil {
			return nil, fmt.Errorf("%s: metadata: %w", ErrMsgPostgresUnmarshalFailed, err)
		}
	}
	tag.Description = description.String
	tag.Author = author.String
	tag.TenantID = tenantID.String
	return &tag, nil
}

// escapeLike escapes LIKE wildcards.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
