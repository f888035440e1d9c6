package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend persists cache entries in SQLite. Same connection policy
// as the other stores: WAL mode, one writer connection, prepared
// statements for the hot paths.
type SQLiteBackend struct {
	db            *sql.DB
	getStmt       *sql.Stmt
	insertStmt    *sql.Stmt
	touchStmt     *sql.Stmt
	deleteStmt    *sql.Stmt
	deleteExpStmt *sql.Stmt
}

// NewSQLiteBackend opens (or creates) the cache database at the given path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA synchronous=NORMAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure cache database: %w", err)
	}

	backend := &SQLiteBackend{db: db}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

func (b *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS response_cache (
		digest TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		payload TEXT NOT NULL,
		tokens_in INTEGER NOT NULL,
		tokens_out INTEGER NOT NULL,
		cost_usd REAL NOT NULL,
		latency_ms INTEGER NOT NULL,
		hit_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		last_accessed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_response_cache_expires
		ON response_cache(expires_at);`

	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) prepareStatements() error {
	var err error

	b.getStmt, err = b.db.Prepare(`
		SELECT digest, provider, model, payload, tokens_in, tokens_out,
		       cost_usd, latency_ms, hit_count, created_at, expires_at, last_accessed_at
		FROM response_cache WHERE digest = ?`)
	if err != nil {
		return err
	}

	// ON CONFLICT DO NOTHING makes the insert race benign: the loser of
	// two concurrent misses storing the same digest sees success.
	b.insertStmt, err = b.db.Prepare(`
		INSERT INTO response_cache
			(digest, provider, model, payload, tokens_in, tokens_out,
			 cost_usd, latency_ms, hit_count, created_at, expires_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING`)
	if err != nil {
		return err
	}

	// The increment happens in SQL, not read-modify-write in Go, so
	// concurrent hits never lose an increment.
	b.touchStmt, err = b.db.Prepare(`
		UPDATE response_cache
		SET hit_count = hit_count + 1,
		    last_accessed_at = MAX(last_accessed_at, ?)
		WHERE digest = ?`)
	if err != nil {
		return err
	}

	b.deleteStmt, err = b.db.Prepare(`DELETE FROM response_cache WHERE digest = ?`)
	if err != nil {
		return err
	}

	b.deleteExpStmt, err = b.db.Prepare(`DELETE FROM response_cache WHERE expires_at <= ?`)
	return err
}

func (b *SQLiteBackend) Get(ctx context.Context, digest string) (*Entry, error) {
	var (
		e                                  Entry
		createdAt, expiresAt, lastAccessed int64
	)

	err := b.getStmt.QueryRowContext(ctx, digest).Scan(
		&e.Digest, &e.Provider, &e.Model, &e.Payload,
		&e.TokensIn, &e.TokensOut, &e.CostUSD, &e.LatencyMS,
		&e.HitCount, &createdAt, &expiresAt, &lastAccessed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	e.CreatedAt = time.UnixMilli(createdAt)
	e.ExpiresAt = time.UnixMilli(expiresAt)
	e.LastAccessedAt = time.UnixMilli(lastAccessed)
	return &e, nil
}

func (b *SQLiteBackend) Insert(ctx context.Context, entry *Entry) error {
	_, err := b.insertStmt.ExecContext(ctx,
		entry.Digest, entry.Provider, entry.Model, entry.Payload,
		entry.TokensIn, entry.TokensOut, entry.CostUSD, entry.LatencyMS,
		entry.CreatedAt.UnixMilli(), entry.ExpiresAt.UnixMilli(),
		entry.LastAccessedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Touch(ctx context.Context, digest string, accessedAt time.Time) error {
	_, err := b.touchStmt.ExecContext(ctx, accessedAt.UnixMilli(), digest)
	if err != nil {
		return fmt.Errorf("failed to touch cache entry: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, digest string) (bool, error) {
	res, err := b.deleteStmt.ExecContext(ctx, digest)
	if err != nil {
		return false, fmt.Errorf("failed to delete cache entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (b *SQLiteBackend) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := b.deleteExpStmt.ExecContext(ctx, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Close releases prepared statements and the database handle.
func (b *SQLiteBackend) Close() error {
	for _, stmt := range []*sql.Stmt{b.getStmt, b.insertStmt, b.touchStmt, b.deleteStmt, b.deleteExpStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return b.db.Close()
}
