// Package scenario drives the two key-reconciliation regression scenarios:
// one with caller-assigned child keys that must round-trip cleanly, and one
// with a misconfigured store-generated key policy that must fail a save with
// a conflict error.
//
// Each scenario is strictly sequential: seed, then verify, each step in its
// own short-lived session. The schema is dropped and recreated before a run,
// so re-running a scenario reproduces identical results.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rowtrack/internal/model"
	"rowtrack/internal/storage"
	"rowtrack/internal/track"
)

// Driver runs scenarios against a single storage backend.
type Driver struct {
	store   storage.Storage
	log     *slog.Logger
	metrics *track.Metrics
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// WithMetrics forwards flush counters to every session the driver opens.
func WithMetrics(m *track.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// New creates a scenario driver.
func New(store storage.Storage, opts ...Option) *Driver {
	d := &Driver{store: store, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) open() (*track.Session, error) {
	return track.Open(d.store, track.WithLogger(d.log), track.WithMetrics(d.metrics))
}

// ResetCallerAssigned drops and recreates the working pair's schema.
func (d *Driver) ResetCallerAssigned(ctx context.Context) error {
	if err := track.DropSchema(ctx, d.store, model.ParentDesc, model.ChildDesc); err != nil {
		return err
	}
	return track.CreateSchema(ctx, d.store, model.ParentDesc, model.ChildDesc)
}

// ResetStoreGenerated drops and recreates the broken pair's schema.
func (d *Driver) ResetStoreGenerated(ctx context.Context) error {
	if err := track.DropSchema(ctx, d.store, model.BrokenParentDesc, model.BrokenChildDesc); err != nil {
		return err
	}
	return track.CreateSchema(ctx, d.store, model.BrokenParentDesc, model.BrokenChildDesc)
}

// RunCallerAssigned seeds a parent with two children, one save per child,
// then reloads the parent with children eagerly joined and compares the
// result structurally against what was written.
func (d *Driver) RunCallerAssigned(ctx context.Context) error {
	parent := &model.Parent{ID: uuid.New(), Name: "Parent"}

	// Seed: parent first, then each child in its own unit of work. The
	// children carry pre-populated keys; the caller-assigned policy must
	// still classify them as new rows.
	sess, err := d.open()
	if err != nil {
		return err
	}
	if err := sess.Add(parent); err != nil {
		return err
	}
	if err := sess.Save(ctx); err != nil {
		return fmt.Errorf("seed parent: %w", err)
	}
	sess.Close()

	for _, name := range []string{"Child1", "Child2"} {
		child := &model.Child{ID: uuid.New(), Name: name}
		parent.AddChild(child)

		sess, err := d.open()
		if err != nil {
			return err
		}
		if err := sess.Add(child); err != nil {
			return err
		}
		if err := sess.Save(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		sess.Close()
	}
	d.log.Info("seeded parent with children", "parent_id", parent.ID, "children", len(parent.Children))

	// Verify: fresh session, eager reload, structural comparison.
	sess, err = d.open()
	if err != nil {
		return err
	}
	defer sess.Close()

	got, err := sess.Query(model.ParentDesc).Include("Children").Where("id", parent.ID).First(ctx)
	if err != nil {
		return fmt.Errorf("reload parent: %w", err)
	}
	if err := compareParent(parent, got.(*model.Parent)); err != nil {
		return fmt.Errorf("reloaded parent differs: %w", err)
	}
	d.log.Info("caller-assigned scenario passed", "parent_id", parent.ID)
	return nil
}

// RunStoreGenerated seeds a parent, reloads it, appends a new child with a
// pre-populated key to the loaded collection, and requires the save to fail
// with a conflict error. Sibling rows must stay untouched.
func (d *Driver) RunStoreGenerated(ctx context.Context) error {
	parentID := uuid.New()

	sess, err := d.open()
	if err != nil {
		return err
	}
	if err := sess.Add(&model.BrokenParent{ID: parentID, Name: "Parent"}); err != nil {
		return err
	}
	if err := sess.Save(ctx); err != nil {
		return fmt.Errorf("seed parent: %w", err)
	}
	sess.Close()

	sess, err = d.open()
	if err != nil {
		return err
	}
	loaded, err := sess.Query(model.BrokenParentDesc).Include("Children").Where("id", parentID).First(ctx)
	if err != nil {
		sess.Close()
		return fmt.Errorf("reload parent: %w", err)
	}

	// The child reaches the session only through the navigation collection.
	// Under the store-generated policy its populated key reads as "already
	// persisted", so the save issues an UPDATE that matches no row.
	loaded.(*model.BrokenParent).AddChild(&model.BrokenChild{ID: uuid.New(), Name: "Child"})

	err = sess.Save(ctx)
	sess.Close()

	var conflict *track.ConflictError
	if !errors.As(err, &conflict) {
		return fmt.Errorf("expected a conflict error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "actually affected 0 row(s)") {
		return fmt.Errorf("conflict error has unexpected message: %v", err)
	}
	d.log.Info("store-generated scenario raised the expected conflict", "parent_id", parentID)

	// The failed save must not have leaked the child row.
	sess, err = d.open()
	if err != nil {
		return err
	}
	defer sess.Close()
	reloaded, err := sess.Query(model.BrokenParentDesc).Include("Children").Where("id", parentID).First(ctx)
	if err != nil {
		return fmt.Errorf("reload after conflict: %w", err)
	}
	if n := len(reloaded.(*model.BrokenParent).Children); n != 0 {
		return fmt.Errorf("conflicted save leaked %d child row(s)", n)
	}
	return nil
}
