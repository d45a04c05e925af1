package track

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"
)

type opKind int

const (
	opInsert opKind = iota
	opUpdate
)

type flushOp struct {
	kind opKind
	te   *trackedEntity
}

// rank orders the flush: inserts into referenced tables first, then inserts
// into referencing tables, then updates.
func (op flushOp) rank() int {
	if op.kind == opUpdate {
		return 2
	}
	if op.te.desc.references() {
		return 1
	}
	return 0
}

// Save flushes all pending changes in a single transaction. An UPDATE that
// matches no row fails the whole save with a *ConflictError and rolls the
// transaction back, leaving sibling rows untouched.
func (s *Session) Save(ctx context.Context) error {
	ops, err := s.plan()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	dl := s.exec.dialect()
	tx, err := s.exec.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var inserts, updates int
	for _, op := range ops {
		d := op.te.desc
		e := op.te.entity
		switch op.kind {
		case opInsert:
			args := append([]any{d.KeyOf(e)}, d.Values(e)...)
			if _, err := tx.Exec(ctx, insertStmt(d, dl), args...); err != nil {
				return fmt.Errorf("insert %s: %w", d.Name, err)
			}
			inserts++
		case opUpdate:
			args := append(slices.Clone(d.Values(e)), d.KeyOf(e))
			n, err := tx.Exec(ctx, updateStmt(d, dl), args...)
			if err != nil {
				return fmt.Errorf("update %s: %w", d.Name, err)
			}
			if n != 1 {
				if s.metrics != nil {
					s.metrics.conflicts.Inc()
				}
				return &ConflictError{Table: d.Table, Expected: 1, Actual: n}
			}
			updates++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true

	// Flushed entities are now synchronized: re-snapshot and index them so
	// later saves in this session see them as unchanged.
	for _, op := range ops {
		op.te.state = stateLoaded
		op.te.snapshot = slices.Clone(op.te.desc.Values(op.te.entity))
		s.byKey[trackKey{op.te.desc.Table, op.te.desc.KeyOf(op.te.entity)}] = op.te
	}

	if s.metrics != nil {
		s.metrics.saves.Inc()
		s.metrics.inserts.Add(float64(inserts))
		s.metrics.updates.Add(float64(updates))
	}
	s.log.Debug("flushed pending changes", "inserts", inserts, "updates", updates)
	return nil
}

// plan discovers entities reachable only through navigation collections,
// classifies everything tracked, and orders the resulting operations.
func (s *Session) plan() ([]flushOp, error) {
	// Discovery appends to s.tracked; iterate over a snapshot. A child that
	// the session has never seen is classified by the key policy of its
	// descriptor, never by whether its key field looks populated.
	for _, te := range slices.Clone(s.tracked) {
		parentKey := te.desc.KeyOf(te.entity)
		for i := range te.desc.Relations {
			rel := &te.desc.Relations[i]
			for _, child := range rel.Collection(te.entity) {
				if _, ok := s.byEntity[child]; ok {
					continue
				}
				if rel.SetForeignKey != nil {
					rel.SetForeignKey(child, parentKey)
				}
				target := rel.Target
				switch target.KeyPolicy {
				case KeyCallerAssigned:
					if target.KeyOf(child) == uuid.Nil {
						return nil, fmt.Errorf("%s: caller-assigned key must be set", target.Name)
					}
					s.attach(child, target, stateAdded, nil)
				case KeyStoreGenerated:
					if target.KeyOf(child) == uuid.Nil {
						target.SetKey(child, uuid.New())
						s.attach(child, target, stateAdded, nil)
					} else {
						// A populated key under a store-generated policy
						// reads as an already persisted row needing an
						// update. The nil snapshot forces the UPDATE.
						s.attach(child, target, stateLoaded, nil)
					}
				}
			}
		}
	}

	var ops []flushOp
	for _, te := range s.tracked {
		switch te.state {
		case stateAdded:
			if te.desc.KeyPolicy == KeyStoreGenerated && te.desc.KeyOf(te.entity) == uuid.Nil {
				te.desc.SetKey(te.entity, uuid.New())
			}
			ops = append(ops, flushOp{kind: opInsert, te: te})
		case stateLoaded:
			if te.snapshot == nil || !valuesEqual(te.snapshot, te.desc.Values(te.entity)) {
				ops = append(ops, flushOp{kind: opUpdate, te: te})
			}
		}
	}

	sort.SliceStable(ops, func(i, j int) bool { return ops[i].rank() < ops[j].rank() })
	return ops, nil
}

// valuesEqual compares snapshots element-wise. Column values are required to
// be comparable.
func valuesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
