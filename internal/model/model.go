// Package model defines the two parent/child entity pairs used by the
// key-reconciliation scenarios, together with their persistence descriptors.
//
// The working pair declares the child key as caller-assigned. The broken
// pair is structurally identical but leaves the child key on the
// store-generated policy, which misclassifies new children that arrive with
// a pre-populated key.
package model

import (
	"github.com/google/uuid"

	"rowtrack/internal/track"
)

// Parent owns an ordered collection of children by reference.
type Parent struct {
	ID       uuid.UUID
	Name     string
	Children []*Child
}

// Child belongs to exactly one parent. Its key is caller-assigned: the
// persistence layer never generates or overwrites it.
type Child struct {
	ID       uuid.UUID
	Name     string
	Position int
	ParentID uuid.UUID
	Parent   *Parent
}

// AddChild appends c to the parent's collection and fixes up the
// back-reference, foreign key, and position.
func (p *Parent) AddChild(c *Child) {
	c.Parent = p
	c.ParentID = p.ID
	c.Position = len(p.Children)
	p.Children = append(p.Children, c)
}

func (p *Parent) Descriptor() *track.Descriptor { return ParentDesc }
func (c *Child) Descriptor() *track.Descriptor  { return ChildDesc }

// ChildDesc maps Child to the children table with a caller-assigned key.
var ChildDesc = &track.Descriptor{
	Name:      "Child",
	Table:     "children",
	Key:       track.Column{Name: "id", Type: track.ColumnUUID},
	KeyPolicy: track.KeyCallerAssigned,
	Columns: []track.Column{
		{Name: "name", Type: track.ColumnText, NotNull: true},
		{Name: "position", Type: track.ColumnInteger, NotNull: true},
		{Name: "parent_id", Type: track.ColumnUUID, NotNull: true, References: "parents(id)"},
	},
	New:    func() track.Entity { return &Child{} },
	KeyOf:  func(e track.Entity) uuid.UUID { return e.(*Child).ID },
	SetKey: func(e track.Entity, id uuid.UUID) { e.(*Child).ID = id },
	Values: func(e track.Entity) []any {
		c := e.(*Child)
		return []any{c.Name, c.Position, c.ParentID}
	},
	Fields: func(e track.Entity) []any {
		c := e.(*Child)
		return []any{&c.ID, &c.Name, &c.Position, &c.ParentID}
	},
}

// ParentDesc maps Parent to the parents table and declares the ordered
// Children relation.
var ParentDesc = &track.Descriptor{
	Name:      "Parent",
	Table:     "parents",
	Key:       track.Column{Name: "id", Type: track.ColumnUUID},
	KeyPolicy: track.KeyCallerAssigned,
	Columns: []track.Column{
		{Name: "name", Type: track.ColumnText, NotNull: true},
	},
	New:    func() track.Entity { return &Parent{} },
	KeyOf:  func(e track.Entity) uuid.UUID { return e.(*Parent).ID },
	SetKey: func(e track.Entity, id uuid.UUID) { e.(*Parent).ID = id },
	Values: func(e track.Entity) []any {
		p := e.(*Parent)
		return []any{p.Name}
	},
	Fields: func(e track.Entity) []any {
		p := e.(*Parent)
		return []any{&p.ID, &p.Name}
	},
	Relations: []track.Relation{{
		Name:       "Children",
		Target:     ChildDesc,
		ForeignKey: "parent_id",
		OrderBy:    "position",
		Collection: func(parent track.Entity) []track.Entity {
			p := parent.(*Parent)
			children := make([]track.Entity, len(p.Children))
			for i, c := range p.Children {
				children[i] = c
			}
			return children
		},
		Attach: func(parent, child track.Entity) {
			p := parent.(*Parent)
			c := child.(*Child)
			c.Parent = p
			p.Children = append(p.Children, c)
		},
		SetForeignKey: func(child track.Entity, parentKey uuid.UUID) {
			child.(*Child).ParentID = parentKey
		},
	}},
}
