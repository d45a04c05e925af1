package track

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"rowtrack/internal/storage"
)

type entityState int

const (
	stateAdded entityState = iota
	stateLoaded
)

type trackedEntity struct {
	entity Entity
	desc   *Descriptor
	state  entityState
	// snapshot holds the column values as last read from or written to the
	// database. Nil for entities the session has never synchronized.
	snapshot []any
}

type trackKey struct {
	table string
	id    uuid.UUID
}

// Session is a short-lived unit of work: open, mutate, save, close. One
// session per logical transaction. Sessions are not safe for concurrent use.
type Session struct {
	exec     executor
	log      *slog.Logger
	metrics  *Metrics
	tracked  []*trackedEntity
	byEntity map[Entity]*trackedEntity
	byKey    map[trackKey]*trackedEntity
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithMetrics attaches flush counters to the session.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Open creates a session on top of the given storage.
func Open(st storage.Storage, opts ...Option) (*Session, error) {
	exec, err := newExecutor(st)
	if err != nil {
		return nil, err
	}
	s := &Session{
		exec:     exec,
		log:      slog.Default(),
		byEntity: make(map[Entity]*trackedEntity),
		byKey:    make(map[trackKey]*trackedEntity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Add marks the entity as pending insert. The classification holds
// regardless of whether the key field is already populated.
func (s *Session) Add(e Entity) error {
	if e == nil {
		return fmt.Errorf("cannot add nil entity")
	}
	if _, ok := s.byEntity[e]; ok {
		return fmt.Errorf("entity is already tracked by this session")
	}
	d := e.Descriptor()
	if d.KeyPolicy == KeyCallerAssigned && d.KeyOf(e) == uuid.Nil {
		return fmt.Errorf("%s: caller-assigned key must be set before Add", d.Name)
	}
	s.attach(e, d, stateAdded, nil)
	return nil
}

// Find loads the entity with the given key, or returns the already tracked
// instance. Returns ErrNotFound when no row matches.
func (s *Session) Find(ctx context.Context, desc *Descriptor, key uuid.UUID) (Entity, error) {
	if te, ok := s.byKey[trackKey{desc.Table, key}]; ok {
		return te.entity, nil
	}

	rows, err := s.exec.Query(ctx, selectStmt(desc, s.exec.dialect(), desc.Key.Name), key)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", desc.Name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("find %s: %w", desc.Name, err)
		}
		return nil, ErrNotFound
	}

	e := desc.New()
	if err := rows.Scan(desc.Fields(e)...); err != nil {
		return nil, fmt.Errorf("find %s: scan: %w", desc.Name, err)
	}
	s.trackLoaded(e)
	return e, nil
}

// Close detaches all tracked entities. The underlying connection belongs to
// the storage layer and stays open.
func (s *Session) Close() {
	s.tracked = nil
	s.byEntity = make(map[Entity]*trackedEntity)
	s.byKey = make(map[trackKey]*trackedEntity)
}

func (s *Session) attach(e Entity, d *Descriptor, state entityState, snapshot []any) *trackedEntity {
	te := &trackedEntity{entity: e, desc: d, state: state, snapshot: snapshot}
	s.tracked = append(s.tracked, te)
	s.byEntity[e] = te
	if id := d.KeyOf(e); id != uuid.Nil {
		s.byKey[trackKey{d.Table, id}] = te
	}
	return te
}

func (s *Session) trackLoaded(e Entity) {
	d := e.Descriptor()
	s.attach(e, d, stateLoaded, slices.Clone(d.Values(e)))
}
