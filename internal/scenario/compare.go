package scenario

import (
	"fmt"

	"rowtrack/internal/model"
)

// compareParent performs the deep structural comparison the verify step
// relies on: identifier, name, and the full ordered child list field by
// field, including the resolved foreign key. Reference equality is never
// enough here since the reloaded graph is a separate object tree.
func compareParent(want, got *model.Parent) error {
	if got.ID != want.ID {
		return fmt.Errorf("id: got %s, want %s", got.ID, want.ID)
	}
	if got.Name != want.Name {
		return fmt.Errorf("name: got %q, want %q", got.Name, want.Name)
	}
	if len(got.Children) != len(want.Children) {
		return fmt.Errorf("children: got %d, want %d", len(got.Children), len(want.Children))
	}
	for i, w := range want.Children {
		g := got.Children[i]
		if g.ID != w.ID {
			return fmt.Errorf("children[%d].id: got %s, want %s", i, g.ID, w.ID)
		}
		if g.Name != w.Name {
			return fmt.Errorf("children[%d].name: got %q, want %q", i, g.Name, w.Name)
		}
		if g.Position != w.Position {
			return fmt.Errorf("children[%d].position: got %d, want %d", i, g.Position, w.Position)
		}
		if g.ParentID != want.ID {
			return fmt.Errorf("children[%d].parent_id: got %s, want %s", i, g.ParentID, want.ID)
		}
		if g.Parent != got {
			return fmt.Errorf("children[%d]: back-reference not set", i)
		}
	}
	return nil
}
