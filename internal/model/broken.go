package model

import (
	"github.com/google/uuid"

	"rowtrack/internal/track"
)

// BrokenParent mirrors Parent for the misconfigured scenario.
type BrokenParent struct {
	ID       uuid.UUID
	Name     string
	Children []*BrokenChild
}

// BrokenChild mirrors Child, but its descriptor leaves the key on the
// store-generated policy. A new child carrying a pre-populated key is then
// classified as an existing row, and saving it produces an UPDATE that
// matches nothing.
type BrokenChild struct {
	ID       uuid.UUID
	Name     string
	Position int
	ParentID uuid.UUID
	Parent   *BrokenParent
}

// AddChild appends c to the parent's collection and fixes up the
// back-reference, foreign key, and position.
func (p *BrokenParent) AddChild(c *BrokenChild) {
	c.Parent = p
	c.ParentID = p.ID
	c.Position = len(p.Children)
	p.Children = append(p.Children, c)
}

func (p *BrokenParent) Descriptor() *track.Descriptor { return BrokenParentDesc }
func (c *BrokenChild) Descriptor() *track.Descriptor  { return BrokenChildDesc }

// BrokenChildDesc is the deliberately misconfigured mapping: the key policy
// stays store-generated even though callers always supply the key.
var BrokenChildDesc = &track.Descriptor{
	Name:      "BrokenChild",
	Table:     "broken_children",
	Key:       track.Column{Name: "id", Type: track.ColumnUUID},
	KeyPolicy: track.KeyStoreGenerated,
	Columns: []track.Column{
		{Name: "name", Type: track.ColumnText, NotNull: true},
		{Name: "position", Type: track.ColumnInteger, NotNull: true},
		{Name: "parent_id", Type: track.ColumnUUID, NotNull: true, References: "broken_parents(id)"},
	},
	New:    func() track.Entity { return &BrokenChild{} },
	KeyOf:  func(e track.Entity) uuid.UUID { return e.(*BrokenChild).ID },
	SetKey: func(e track.Entity, id uuid.UUID) { e.(*BrokenChild).ID = id },
	Values: func(e track.Entity) []any {
		c := e.(*BrokenChild)
		return []any{c.Name, c.Position, c.ParentID}
	},
	Fields: func(e track.Entity) []any {
		c := e.(*BrokenChild)
		return []any{&c.ID, &c.Name, &c.Position, &c.ParentID}
	},
}

// BrokenParentDesc maps BrokenParent to the broken_parents table.
var BrokenParentDesc = &track.Descriptor{
	Name:      "BrokenParent",
	Table:     "broken_parents",
	Key:       track.Column{Name: "id", Type: track.ColumnUUID},
	KeyPolicy: track.KeyCallerAssigned,
	Columns: []track.Column{
		{Name: "name", Type: track.ColumnText, NotNull: true},
	},
	New:    func() track.Entity { return &BrokenParent{} },
	KeyOf:  func(e track.Entity) uuid.UUID { return e.(*BrokenParent).ID },
	SetKey: func(e track.Entity, id uuid.UUID) { e.(*BrokenParent).ID = id },
	Values: func(e track.Entity) []any {
		p := e.(*BrokenParent)
		return []any{p.Name}
	},
	Fields: func(e track.Entity) []any {
		p := e.(*BrokenParent)
		return []any{&p.ID, &p.Name}
	},
	Relations: []track.Relation{{
		Name:       "Children",
		Target:     BrokenChildDesc,
		ForeignKey: "parent_id",
		OrderBy:    "position",
		Collection: func(parent track.Entity) []track.Entity {
			p := parent.(*BrokenParent)
			children := make([]track.Entity, len(p.Children))
			for i, c := range p.Children {
				children[i] = c
			}
			return children
		},
		Attach: func(parent, child track.Entity) {
			p := parent.(*BrokenParent)
			c := child.(*BrokenChild)
			c.Parent = p
			p.Children = append(p.Children, c)
		},
		SetForeignKey: func(child track.Entity, parentKey uuid.UUID) {
			child.(*BrokenChild).ParentID = parentKey
		},
	}},
}
