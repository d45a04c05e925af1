package track

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Query is a minimal single-entity query with optional eager loading of
// relations: Query(desc).Include("Children").Where("id", key).First(ctx).
type Query struct {
	session  *Session
	desc     *Descriptor
	includes []string
	whereCol string
	whereVal any
}

// Query starts a query for the given entity type.
func (s *Session) Query(desc *Descriptor) *Query {
	return &Query{session: s, desc: desc}
}

// Include eager-loads the named relation, ordered by its OrderBy column.
func (q *Query) Include(relation string) *Query {
	q.includes = append(q.includes, relation)
	return q
}

// Where filters on a single column equality. Column names come from the
// descriptor, not from user input.
func (q *Query) Where(column string, value any) *Query {
	q.whereCol = column
	q.whereVal = value
	return q
}

// First returns the first matching entity with its included relations, or
// ErrNotFound. The entity and all loaded children are tracked.
func (q *Query) First(ctx context.Context) (Entity, error) {
	s := q.session
	stmt := firstStmt(q.desc, s.exec.dialect(), q.whereCol)
	var args []any
	if q.whereCol != "" {
		args = append(args, q.whereVal)
	}

	rows, err := s.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.desc.Name, err)
	}

	if !rows.Next() {
		err := rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.desc.Name, err)
		}
		return nil, ErrNotFound
	}

	e := q.desc.New()
	if err := rows.Scan(q.desc.Fields(e)...); err != nil {
		rows.Close()
		return nil, fmt.Errorf("query %s: scan: %w", q.desc.Name, err)
	}
	rows.Close()

	key := q.desc.KeyOf(e)
	if te, ok := s.byKey[trackKey{q.desc.Table, key}]; ok {
		// Identity map: the session already holds this row, including any
		// relations loaded earlier.
		return te.entity, nil
	}
	s.trackLoaded(e)

	for _, name := range q.includes {
		rel := q.desc.relation(name)
		if rel == nil {
			return nil, fmt.Errorf("%s: unknown relation %q", q.desc.Name, name)
		}
		if err := s.loadRelation(ctx, rel, e, key); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (s *Session) loadRelation(ctx context.Context, rel *Relation, parent Entity, parentKey uuid.UUID) error {
	stmt := relationStmt(rel.Target, s.exec.dialect(), rel.ForeignKey, rel.OrderBy)
	rows, err := s.exec.Query(ctx, stmt, parentKey)
	if err != nil {
		return fmt.Errorf("load relation %s: %w", rel.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		child := rel.Target.New()
		if err := rows.Scan(rel.Target.Fields(child)...); err != nil {
			return fmt.Errorf("load relation %s: scan: %w", rel.Name, err)
		}
		s.trackLoaded(child)
		rel.Attach(parent, child)
	}
	return rows.Err()
}
