package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteLedger persists billed requests in SQLite. It uses WAL mode and
// prepared statements; SQLite supports a single writer, so the connection
// pool is capped at one open connection.
type SQLiteLedger struct {
	db         *sql.DB
	appendStmt *sql.Stmt
	sumStmt    *sql.Stmt
}

// NewSQLiteLedger opens (or creates) the ledger database at the given path.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA synchronous=NORMAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure ledger database: %w", err)
	}

	ledger := &SQLiteLedger{db: db}

	if err := ledger.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	if err := ledger.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return ledger, nil
}

func (l *SQLiteLedger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		tokens_in INTEGER NOT NULL,
		tokens_out INTEGER NOT NULL,
		cost_usd REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_ledger_org_time
		ON usage_ledger(organization_id, created_at);`

	_, err := l.db.Exec(schema)
	return err
}

func (l *SQLiteLedger) prepareStatements() error {
	var err error

	l.appendStmt, err = l.db.Prepare(`
		INSERT INTO usage_ledger (organization_id, provider, model, tokens_in, tokens_out, cost_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	l.sumStmt, err = l.db.Prepare(`
		SELECT COALESCE(SUM(cost_usd), 0)
		FROM usage_ledger
		WHERE organization_id = ? AND created_at >= ? AND created_at < ?`)
	return err
}

// Append records one completed billed request.
func (l *SQLiteLedger) Append(ctx context.Context, entry *Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := l.appendStmt.ExecContext(ctx,
		entry.OrganizationID, entry.Provider, entry.Model,
		entry.TokensIn, entry.TokensOut, entry.CostUSD,
		createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// SumCostRange returns the total cost for an organization within [from, to).
func (l *SQLiteLedger) SumCostRange(ctx context.Context, organizationID string, from, to time.Time) (float64, error) {
	var sum float64
	err := l.sumStmt.QueryRowContext(ctx, organizationID, from.UnixMilli(), to.UnixMilli()).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger range: %w", err)
	}
	return sum, nil
}

// Close releases prepared statements and the database handle.
func (l *SQLiteLedger) Close() error {
	if l.appendStmt != nil {
		l.appendStmt.Close()
	}
	if l.sumStmt != nil {
		l.sumStmt.Close()
	}
	return l.db.Close()
}
