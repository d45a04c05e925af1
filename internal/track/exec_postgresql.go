package track

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecutor implements executor over a pgx connection pool.
type pgExecutor struct {
	pool *pgxpool.Pool
}

func newPostgreSQLExecutor(pool *pgxpool.Pool) *pgExecutor {
	return &pgExecutor{pool: pool}
}

func (e *pgExecutor) dialect() dialect {
	return dialectPostgreSQL
}

func (e *pgExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := e.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (e *pgExecutor) Query(ctx context.Context, query string, args ...any) (rowIter, error) {
	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgRows{rows: rows}, nil
}

func (e *pgExecutor) Begin(ctx context.Context) (txExecutor, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

// pgRows adapts pgx.Rows to the rowIter interface.
type pgRows struct {
	rows pgx.Rows
}

func (r *pgRows) Next() bool             { return r.rows.Next() }
func (r *pgRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgRows) Err() error             { return r.rows.Err() }
func (r *pgRows) Close() error           { r.rows.Close(); return nil }

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
