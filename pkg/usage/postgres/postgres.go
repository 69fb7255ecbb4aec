// Package postgres provides a PostgreSQL-backed usage recorder using
// pgx/v5 connection pooling.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strom-dev/strom/pkg/usage"
)

// Recorder persists usage records in PostgreSQL.
type Recorder struct {
	pool *pgxpool.Pool
}

var _ usage.Recorder = (*Recorder)(nil)

// New creates a Recorder with the given configuration. If MigrateOnStart
// is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	r := &Recorder{pool: pool}

	if cfg.MigrateOnStart {
		if err := r.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return r, nil
}

// Record implements usage.Recorder.
func (r *Recorder) Record(ctx context.Context, rec usage.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO usage_records (
			completion_id, provider, model,
			prompt_tokens, completion_tokens, total_tokens,
			finish_reason, streamed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.CompletionID, rec.Provider, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens,
		rec.FinishReason, rec.Streamed, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting usage record: %w", err)
	}
	return nil
}

// ProviderTotals returns the summed token counts per provider since the
// given time.
func (r *Recorder) ProviderTotals(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT provider, COALESCE(SUM(total_tokens), 0)
		FROM usage_records
		WHERE created_at >= $1
		GROUP BY provider
	`, since)
	if err != nil {
		return nil, fmt.Errorf("querying provider totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var provider string
		var total int
		if err := rows.Scan(&provider, &total); err != nil {
			return nil, fmt.Errorf("scanning provider total: %w", err)
		}
		totals[provider] = total
	}
	return totals, rows.Err()
}

// HealthCheck verifies the database connection.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the connection pool.
func (r *Recorder) Close() error {
	r.pool.Close()
	return nil
}
