package track

import (
	"context"
	"fmt"

	"rowtrack/internal/storage"
)

// executor abstracts statement execution over the two storage backends.
type executor interface {
	dialect() dialect
	Begin(ctx context.Context) (txExecutor, error)
	// Exec runs a statement and returns the affected-row count.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (rowIter, error)
}

// txExecutor is the transactional subset used by Save.
type txExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// rowIter is satisfied by *sql.Rows directly and by a thin pgx wrapper.
type rowIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func newExecutor(st storage.Storage) (executor, error) {
	switch st.Type() {
	case storage.TypeSQLite:
		return newSQLiteExecutor(st.SQLiteDB()), nil
	case storage.TypePostgreSQL:
		return newPostgreSQLExecutor(st.PostgreSQLPool()), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", st.Type())
	}
}
