package track_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtrack/internal/model"
	"rowtrack/internal/storage"
	"rowtrack/internal/track"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	st, err := storage.NewSQLite(storage.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func setupWorkingSchema(t *testing.T, st storage.Storage) {
	t.Helper()
	require.NoError(t, track.CreateSchema(t.Context(), st, model.ParentDesc, model.ChildDesc))
}

func setupBrokenSchema(t *testing.T, st storage.Storage) {
	t.Helper()
	require.NoError(t, track.CreateSchema(t.Context(), st, model.BrokenParentDesc, model.BrokenChildDesc))
}

func openSession(t *testing.T, st storage.Storage, opts ...track.Option) *track.Session {
	t.Helper()
	sess, err := track.Open(st, opts...)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func TestAddInsertsDespitePopulatedKey(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)
	ctx := t.Context()

	// Both entities carry non-zero keys before they were ever saved. The
	// caller-assigned policy must still classify them as new rows.
	parent := &model.Parent{ID: uuid.New(), Name: "Parent"}
	child := &model.Child{ID: uuid.New(), Name: "Child1"}
	parent.AddChild(child)

	sess := openSession(t, st)
	require.NoError(t, sess.Add(parent))
	require.NoError(t, sess.Add(child))
	require.NoError(t, sess.Save(ctx))

	fresh := openSession(t, st)
	got, err := fresh.Find(ctx, model.ChildDesc, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Child1", got.(*model.Child).Name)
	assert.Equal(t, parent.ID, got.(*model.Child).ParentID)
}

func TestAddRequiresCallerAssignedKey(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)

	sess := openSession(t, st)
	err := sess.Add(&model.Child{Name: "NoKey"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caller-assigned key")
}

func TestFindMissReturnsNotFound(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)

	sess := openSession(t, st)
	_, err := sess.Find(t.Context(), model.ParentDesc, uuid.New())
	require.ErrorIs(t, err, track.ErrNotFound)
}

func TestFindReturnsTrackedInstance(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)
	ctx := t.Context()

	parent := &model.Parent{ID: uuid.New(), Name: "Parent"}
	sess := openSession(t, st)
	require.NoError(t, sess.Add(parent))
	require.NoError(t, sess.Save(ctx))

	got, err := sess.Find(ctx, model.ParentDesc, parent.ID)
	require.NoError(t, err)
	assert.Same(t, parent, got)
}

func TestDirtyEntityProducesUpdate(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)
	ctx := t.Context()

	id := uuid.New()
	seed := openSession(t, st)
	require.NoError(t, seed.Add(&model.Parent{ID: id, Name: "Before"}))
	require.NoError(t, seed.Save(ctx))
	seed.Close()

	sess := openSession(t, st)
	got, err := sess.Find(ctx, model.ParentDesc, id)
	require.NoError(t, err)
	got.(*model.Parent).Name = "After"
	require.NoError(t, sess.Save(ctx))

	fresh := openSession(t, st)
	reloaded, err := fresh.Find(ctx, model.ParentDesc, id)
	require.NoError(t, err)
	assert.Equal(t, "After", reloaded.(*model.Parent).Name)
}

func TestCleanEntityProducesNoWrite(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)
	ctx := t.Context()

	id := uuid.New()
	seed := openSession(t, st)
	require.NoError(t, seed.Add(&model.Parent{ID: id, Name: "Parent"}))
	require.NoError(t, seed.Save(ctx))
	seed.Close()

	registry := prometheus.NewRegistry()
	metrics := track.NewMetrics(registry)
	sess := openSession(t, st, track.WithMetrics(metrics))
	_, err := sess.Find(ctx, model.ParentDesc, id)
	require.NoError(t, err)
	require.NoError(t, sess.Save(ctx))

	// Nothing was dirty, so no flush happened at all.
	assert.Zero(t, counterValue(t, registry, "rowtrack_saves_total"))
	assert.Zero(t, counterValue(t, registry, "rowtrack_rows_updated_total"))
}

func TestNavigationDiscoveryInsertsCallerAssignedChild(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)
	ctx := t.Context()

	parent := &model.Parent{ID: uuid.New(), Name: "Parent"}
	seed := openSession(t, st)
	require.NoError(t, seed.Add(parent))
	require.NoError(t, seed.Save(ctx))
	seed.Close()

	// The child reaches the session only through the loaded parent's
	// collection; it is never Added explicitly.
	sess := openSession(t, st)
	loaded, err := sess.Query(model.ParentDesc).Include("Children").Where("id", parent.ID).First(ctx)
	require.NoError(t, err)
	child := &model.Child{ID: uuid.New(), Name: "Discovered"}
	loaded.(*model.Parent).AddChild(child)
	require.NoError(t, sess.Save(ctx))

	fresh := openSession(t, st)
	got, err := fresh.Find(ctx, model.ChildDesc, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Discovered", got.(*model.Child).Name)
	assert.Equal(t, parent.ID, got.(*model.Child).ParentID)
}

func TestStoreGeneratedKeyIsMaterialized(t *testing.T) {
	st := newTestStorage(t)
	setupBrokenSchema(t, st)
	ctx := t.Context()

	parent := &model.BrokenParent{ID: uuid.New(), Name: "Parent"}
	child := &model.BrokenChild{Name: "Child", ParentID: parent.ID}

	sess := openSession(t, st)
	require.NoError(t, sess.Add(parent))
	require.NoError(t, sess.Add(child))
	require.NoError(t, sess.Save(ctx))

	// The engine assigned the key during the flush and wrote it back.
	require.NotEqual(t, uuid.Nil, child.ID)

	fresh := openSession(t, st)
	got, err := fresh.Find(ctx, model.BrokenChildDesc, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Child", got.(*model.BrokenChild).Name)
}

func TestStoreGeneratedDiscoveryConflicts(t *testing.T) {
	st := newTestStorage(t)
	setupBrokenSchema(t, st)
	ctx := t.Context()

	parentID := uuid.New()
	seed := openSession(t, st)
	require.NoError(t, seed.Add(&model.BrokenParent{ID: parentID, Name: "Parent"}))
	require.NoError(t, seed.Save(ctx))
	seed.Close()

	registry := prometheus.NewRegistry()
	metrics := track.NewMetrics(registry)
	sess := openSession(t, st, track.WithMetrics(metrics))
	loaded, err := sess.Query(model.BrokenParentDesc).Include("Children").Where("id", parentID).First(ctx)
	require.NoError(t, err)

	// New child, populated key, store-generated policy: the session reads
	// it as an existing row and issues an UPDATE that matches nothing.
	childID := uuid.New()
	loaded.(*model.BrokenParent).AddChild(&model.BrokenChild{ID: childID, Name: "Child"})

	err = sess.Save(ctx)
	var conflict *track.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "broken_children", conflict.Table)
	assert.Equal(t, int64(1), conflict.Expected)
	assert.Equal(t, int64(0), conflict.Actual)
	assert.Contains(t, err.Error(), "expected to affect 1 row(s) but actually affected 0 row(s)")
	assert.Equal(t, float64(1), counterValue(t, registry, "rowtrack_save_conflicts_total"))

	// The transaction rolled back: no child row leaked, the parent row is
	// still there.
	fresh := openSession(t, st)
	_, err = fresh.Find(ctx, model.BrokenChildDesc, childID)
	require.ErrorIs(t, err, track.ErrNotFound)
	_, err = fresh.Find(ctx, model.BrokenParentDesc, parentID)
	require.NoError(t, err)
}

func TestEagerLoadOrdersByPosition(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)
	ctx := t.Context()

	parent := &model.Parent{ID: uuid.New(), Name: "Parent"}
	names := []string{"First", "Second", "Third"}

	seed := openSession(t, st)
	require.NoError(t, seed.Add(parent))
	for _, name := range names {
		child := &model.Child{ID: uuid.New(), Name: name}
		parent.AddChild(child)
		require.NoError(t, seed.Add(child))
	}
	require.NoError(t, seed.Save(ctx))
	seed.Close()

	sess := openSession(t, st)
	got, err := sess.Query(model.ParentDesc).Include("Children").Where("id", parent.ID).First(ctx)
	require.NoError(t, err)

	children := got.(*model.Parent).Children
	require.Len(t, children, len(names))
	for i, name := range names {
		assert.Equal(t, name, children[i].Name)
		assert.Equal(t, i, children[i].Position)
		assert.Same(t, got, children[i].Parent)
	}
}

func TestQueryUnknownRelation(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)
	ctx := t.Context()

	id := uuid.New()
	seed := openSession(t, st)
	require.NoError(t, seed.Add(&model.Parent{ID: id, Name: "Parent"}))
	require.NoError(t, seed.Save(ctx))
	seed.Close()

	sess := openSession(t, st)
	_, err := sess.Query(model.ParentDesc).Include("Siblings").Where("id", id).First(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown relation "Siblings"`)
}

func TestQueryMissReturnsNotFound(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)

	sess := openSession(t, st)
	_, err := sess.Query(model.ParentDesc).Where("id", uuid.New()).First(t.Context())
	require.ErrorIs(t, err, track.ErrNotFound)
}

func TestSaveWithNothingPendingIsNoOp(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)

	sess := openSession(t, st)
	require.NoError(t, sess.Save(t.Context()))
}

func TestDropSchemaResetsState(t *testing.T) {
	st := newTestStorage(t)
	setupWorkingSchema(t, st)
	ctx := t.Context()

	id := uuid.New()
	seed := openSession(t, st)
	require.NoError(t, seed.Add(&model.Parent{ID: id, Name: "Parent"}))
	require.NoError(t, seed.Save(ctx))
	seed.Close()

	require.NoError(t, track.DropSchema(ctx, st, model.ParentDesc, model.ChildDesc))
	require.NoError(t, track.CreateSchema(ctx, st, model.ParentDesc, model.ChildDesc))

	sess := openSession(t, st)
	_, err := sess.Find(ctx, model.ParentDesc, id)
	require.ErrorIs(t, err, track.ErrNotFound)
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() == name {
			require.Len(t, fam.GetMetric(), 1)
			return fam.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
