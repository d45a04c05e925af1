package track

import (
	"context"
	"fmt"

	"rowtrack/internal/storage"
)

// CreateSchema generates and executes CREATE TABLE statements for the given
// descriptors, in order. Tables that already exist are left alone.
func CreateSchema(ctx context.Context, st storage.Storage, descs ...*Descriptor) error {
	exec, err := newExecutor(st)
	if err != nil {
		return err
	}
	for _, d := range descs {
		if _, err := exec.Exec(ctx, createTableStmt(d, exec.dialect())); err != nil {
			return fmt.Errorf("create table %s: %w", d.Table, err)
		}
	}
	return nil
}

// DropSchema drops the descriptors' tables in reverse order so referencing
// tables go first.
func DropSchema(ctx context.Context, st storage.Storage, descs ...*Descriptor) error {
	exec, err := newExecutor(st)
	if err != nil {
		return err
	}
	for i := len(descs) - 1; i >= 0; i-- {
		if _, err := exec.Exec(ctx, dropTableStmt(descs[i])); err != nil {
			return fmt.Errorf("drop table %s: %w", descs[i].Table, err)
		}
	}
	return nil
}
