// Package track implements a minimal unit-of-work session with explicit
// change tracking over SQLite and PostgreSQL.
//
// A Session accumulates pending changes until Save flushes them in a single
// transaction. Whether a flushed entity produces an INSERT or an UPDATE is
// decided by how the session learned about the entity and by the key
// generation policy of its Descriptor, never by whether the key field
// happens to look populated.
package track

import "github.com/google/uuid"

// KeyPolicy controls how a descriptor's primary key is assigned.
type KeyPolicy int

const (
	// KeyCallerAssigned marks keys that are always supplied by the caller
	// and never assigned by the storage engine. Entities carrying such keys
	// are classified as new or existing purely from tracking state.
	KeyCallerAssigned KeyPolicy = iota

	// KeyStoreGenerated marks keys the storage layer may assign. Zero-value
	// keys are generated at flush time and materialized on the in-memory
	// object; an entity discovered with a non-zero key under this policy is
	// presumed to already have a row behind it.
	KeyStoreGenerated
)

// ColumnType is the logical type of a column, mapped to a concrete SQL type
// per dialect when the schema is generated.
type ColumnType int

const (
	ColumnUUID ColumnType = iota
	ColumnText
	ColumnInteger
)

// Column describes one table column.
type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
	// References names the referenced table and column for foreign keys,
	// e.g. "parents(id)". Empty for plain columns.
	References string
}

// Entity is implemented by every persistable type. Descriptor must return
// the same *Descriptor for every instance of the type.
type Entity interface {
	Descriptor() *Descriptor
}

// Descriptor holds the metadata the session needs to persist one entity
// type: table layout, key policy, value binding, and navigation relations.
// The schema is generated from descriptors; there is no hand-authored SQL.
type Descriptor struct {
	Name      string
	Table     string
	Key       Column
	KeyPolicy KeyPolicy
	Columns   []Column

	// New allocates a zero entity for scanning.
	New func() Entity
	// KeyOf returns the entity's key value.
	KeyOf func(Entity) uuid.UUID
	// SetKey materializes a generated key on the entity. Required for
	// KeyStoreGenerated descriptors.
	SetKey func(Entity, uuid.UUID)
	// Values returns the non-key column values in Columns order. Values
	// must be comparable; snapshots are compared with ==.
	Values func(Entity) []any
	// Fields returns scan destinations: the key pointer first, then the
	// non-key column pointers in Columns order.
	Fields func(Entity) []any

	Relations []Relation
}

// Relation describes a one-to-many navigation from a parent entity to an
// ordered collection of child entities.
type Relation struct {
	Name       string
	Target     *Descriptor
	ForeignKey string
	// OrderBy names the child column eager loads sort by.
	OrderBy string

	// Collection returns the parent's current in-memory children.
	Collection func(parent Entity) []Entity
	// Attach appends a loaded child to the parent and sets the
	// back-reference.
	Attach func(parent, child Entity)
	// SetForeignKey fixes up the child's foreign key from the parent key
	// before a discovered child is flushed.
	SetForeignKey func(child Entity, parentKey uuid.UUID)
}

func (d *Descriptor) relation(name string) *Relation {
	for i := range d.Relations {
		if d.Relations[i].Name == name {
			return &d.Relations[i]
		}
	}
	return nil
}

// references reports whether the table carries a foreign key, which forces
// its inserts to flush after the referenced tables.
func (d *Descriptor) references() bool {
	for _, c := range d.Columns {
		if c.References != "" {
			return true
		}
	}
	return false
}
