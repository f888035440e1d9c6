package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore reads tenant policy rows from a SQLite database. The table is
// owned by the application's tenant-management layer; Warden only reads it.
//
// Nullable columns map to nil StoredPolicy fields, meaning the system
// default applies for that field.
type SQLiteStore struct {
	db        *sql.DB
	fetchStmt *sql.Stmt
}

// NewSQLiteStore opens the policy database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure policy database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize policy schema: %w", err)
	}

	stmt, err := db.Prepare(`
		SELECT trial_mode, max_daily_cost_usd, max_request_cost_usd,
		       max_tokens_input, max_tokens_output, max_concurrent_jobs,
		       allowed_providers, task_overrides,
		       burst_rate_limit, sustained_rate_limit
		FROM organization_policies
		WHERE organization_id = ?`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare fetch statement: %w", err)
	}
	store.fetchStmt = stmt

	return store, nil
}

// initSchema creates the policy table if it doesn't exist. In production
// the tenant-management layer owns this table; creating it here keeps
// development and test setups self-contained.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS organization_policies (
		organization_id TEXT PRIMARY KEY,
		trial_mode INTEGER NOT NULL DEFAULT 0,
		max_daily_cost_usd REAL,
		max_request_cost_usd REAL,
		max_tokens_input INTEGER,
		max_tokens_output INTEGER,
		max_concurrent_jobs INTEGER,
		allowed_providers TEXT,
		task_overrides TEXT,
		burst_rate_limit INTEGER,
		sustained_rate_limit INTEGER
	);`

	_, err := s.db.Exec(schema)
	return err
}

// Fetch returns the stored policy row for an organization, or nil if the
// organization has no tenant-specific policy.
func (s *SQLiteStore) Fetch(ctx context.Context, organizationID string) (*StoredPolicy, error) {
	var (
		trialMode      int
		maxDaily       sql.NullFloat64
		maxRequest     sql.NullFloat64
		maxTokensIn    sql.NullInt64
		maxTokensOut   sql.NullInt64
		maxConcurrent  sql.NullInt64
		providersJSON  sql.NullString
		overridesJSON  sql.NullString
		burstLimit     sql.NullInt64
		sustainedLimit sql.NullInt64
	)

	row := s.fetchStmt.QueryRowContext(ctx, organizationID)
	err := row.Scan(&trialMode, &maxDaily, &maxRequest, &maxTokensIn, &maxTokensOut,
		&maxConcurrent, &providersJSON, &overridesJSON, &burstLimit, &sustainedLimit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch policy for %q: %w", organizationID, err)
	}

	stored := &StoredPolicy{
		OrganizationID: organizationID,
		TrialMode:      trialMode != 0,
	}

	if maxDaily.Valid {
		stored.MaxDailyCostUSD = &maxDaily.Float64
	}
	if maxRequest.Valid {
		stored.MaxRequestCostUSD = &maxRequest.Float64
	}
	if maxTokensIn.Valid {
		v := int(maxTokensIn.Int64)
		stored.MaxTokensInput = &v
	}
	if maxTokensOut.Valid {
		v := int(maxTokensOut.Int64)
		stored.MaxTokensOutput = &v
	}
	if maxConcurrent.Valid {
		v := int(maxConcurrent.Int64)
		stored.MaxConcurrentJobs = &v
	}
	if burstLimit.Valid {
		v := int(burstLimit.Int64)
		stored.BurstRateLimit = &v
	}
	if sustainedLimit.Valid {
		v := int(sustainedLimit.Int64)
		stored.SustainedRateLimit = &v
	}

	if providersJSON.Valid && providersJSON.String != "" {
		if err := json.Unmarshal([]byte(providersJSON.String), &stored.AllowedProviders); err != nil {
			return nil, fmt.Errorf("malformed allowed_providers for %q: %w", organizationID, err)
		}
	}
	if overridesJSON.Valid && overridesJSON.String != "" {
		if err := json.Unmarshal([]byte(overridesJSON.String), &stored.TaskOverrides); err != nil {
			return nil, fmt.Errorf("malformed task_overrides for %q: %w", organizationID, err)
		}
	}

	return stored, nil
}

// Put inserts or replaces a tenant policy row. Exposed for tests and
// development seeding; the production writer is the tenant-management layer.
func (s *SQLiteStore) Put(ctx context.Context, row *StoredPolicy) error {
	providersJSON, err := json.Marshal(row.AllowedProviders)
	if err != nil {
		return fmt.Errorf("failed to marshal allowed_providers: %w", err)
	}
	overridesJSON, err := json.Marshal(row.TaskOverrides)
	if err != nil {
		return fmt.Errorf("failed to marshal task_overrides: %w", err)
	}

	trial := 0
	if row.TrialMode {
		trial = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO organization_policies (
			organization_id, trial_mode, max_daily_cost_usd, max_request_cost_usd,
			max_tokens_input, max_tokens_output, max_concurrent_jobs,
			allowed_providers, task_overrides, burst_rate_limit, sustained_rate_limit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.OrganizationID, trial,
		nullableFloat(row.MaxDailyCostUSD), nullableFloat(row.MaxRequestCostUSD),
		nullableInt(row.MaxTokensInput), nullableInt(row.MaxTokensOutput),
		nullableInt(row.MaxConcurrentJobs),
		string(providersJSON), string(overridesJSON),
		nullableInt(row.BurstRateLimit), nullableInt(row.SustainedRateLimit))
	if err != nil {
		return fmt.Errorf("failed to store policy for %q: %w", row.OrganizationID, err)
	}

	return nil
}

// Close releases the prepared statement and the database handle.
func (s *SQLiteStore) Close() error {
	if s.fetchStmt != nil {
		s.fetchStmt.Close()
	}
	return s.db.Close()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
