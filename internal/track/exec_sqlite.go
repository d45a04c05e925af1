package track

import (
	"context"
	"database/sql"
)

// sqliteExecutor implements executor over a database/sql connection.
type sqliteExecutor struct {
	db *sql.DB
}

func newSQLiteExecutor(db *sql.DB) *sqliteExecutor {
	return &sqliteExecutor{db: db}
}

func (e *sqliteExecutor) dialect() dialect {
	return dialectSQLite
}

func (e *sqliteExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (e *sqliteExecutor) Query(ctx context.Context, query string, args ...any) (rowIter, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *sqliteExecutor) Begin(ctx context.Context) (txExecutor, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqliteTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback(_ context.Context) error {
	return t.tx.Rollback()
}
