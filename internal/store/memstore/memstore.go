// Package memstore is an in-memory store.Store. It mirrors the Postgres
// store's contract (sql.ErrNoRows on misses, unique slugs per namespace,
// per-stream entry columns) and backs tests and `streams serve --memory`.
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/store"
)

// Store is a mutex-guarded in-memory implementation of store.Store.
type Store struct {
	txMu sync.Mutex // serializes RunInTransaction
	mu   sync.Mutex
	st   state
	now  func() time.Time
}

type state struct {
	fields      map[string]*model.Field
	streams     map[string]*model.Stream
	assignments map[string]*model.Assignment
	columns     map[string]map[string]string // entry table -> column -> type
	events      []*model.Event
	writes      int
}

var _ store.Store = (*Store)(nil)

// systemTables are the tables the Postgres schema owns.
var systemTables = []string{"streams", "fields", "field_assignments", "events", "schema_migrations"}

// New returns an empty store.
func New() *Store {
	return &Store{
		st: state{
			fields:      make(map[string]*model.Field),
			streams:     make(map[string]*model.Stream),
			assignments: make(map[string]*model.Assignment),
			columns:     make(map[string]map[string]string),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Writes returns the number of successful mutating calls.
func (m *Store) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.writes
}

// Columns returns the column names of an entry table in sorted order, or
// nil when the table does not exist.
func (m *Store) Columns(table string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols, ok := m.st.columns[table]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(cols))
}

// ColumnType returns the SQL type of a column, or "" when absent.
func (m *Store) ColumnType(table, column string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.columns[table][column]
}

func (m *Store) CreateField(_ context.Context, f *model.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.st.fields {
		if existing.Slug == f.Slug && existing.Namespace == f.Namespace {
			return fmt.Errorf("duplicate field %s/%s", f.Namespace, f.Slug)
		}
	}
	if f.Extra == nil {
		f.Extra = map[string]any{}
	}
	f.CreatedAt = m.now()
	cp := *f
	m.st.fields[f.ID] = &cp
	m.st.writes++
	return nil
}

func (m *Store) GetFieldBySlug(_ context.Context, slug, namespace string) (*model.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.st.fields {
		if f.Slug == slug && f.Namespace == namespace {
			cp := *f
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *Store) ListFields(_ context.Context, namespace string) ([]*model.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Field
	for _, f := range m.st.fields {
		if f.Namespace == namespace {
			cp := *f
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slug < result[j].Slug })
	return result, nil
}

func (m *Store) DeleteField(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.st.fields[id]
	if !ok {
		return sql.ErrNoRows
	}
	for aid, a := range m.st.assignments {
		if a.FieldID != id {
			continue
		}
		if s, ok := m.st.streams[a.StreamID]; ok {
			m.dropColumnLocked(s, f.Slug)
		}
		delete(m.st.assignments, aid)
	}
	delete(m.st.fields, id)
	m.st.writes++
	return nil
}

func (m *Store) CreateStream(_ context.Context, s *model.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.st.streams {
		if existing.Slug == s.Slug && existing.Namespace == s.Namespace {
			return fmt.Errorf("duplicate stream %s/%s", s.Namespace, s.Slug)
		}
	}
	if _, ok := m.st.columns[s.TableName()]; ok {
		return fmt.Errorf("create entry table %s: relation already exists", s.TableName())
	}
	s.CreatedAt = m.now()
	cp := *s
	m.st.streams[s.ID] = &cp
	m.st.columns[s.TableName()] = make(map[string]string)
	m.st.writes++
	return nil
}

func (m *Store) GetStream(_ context.Context, slug, namespace string) (*model.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.st.streams {
		if s.Slug == slug && s.Namespace == namespace {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *Store) ListStreams(_ context.Context, namespace string) ([]*model.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Stream
	for _, s := range m.st.streams {
		if s.Namespace == namespace {
			cp := *s
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slug < result[j].Slug })
	return result, nil
}

func (m *Store) EntryTableExists(_ context.Context, table string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.st.columns[table]
	return ok || slices.Contains(systemTables, table), nil
}

func (m *Store) ListNamespaces(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var result []string
	add := func(ns string) {
		if !seen[ns] {
			seen[ns] = true
			result = append(result, ns)
		}
	}
	for _, f := range m.st.fields {
		add(f.Namespace)
	}
	for _, s := range m.st.streams {
		add(s.Namespace)
	}
	sort.Strings(result)
	return result, nil
}

func (m *Store) DeleteStream(_ context.Context, s *model.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.streams[s.ID]; !ok {
		return sql.ErrNoRows
	}
	for aid, a := range m.st.assignments {
		if a.StreamID == s.ID {
			delete(m.st.assignments, aid)
		}
	}
	delete(m.st.columns, s.TableName())
	delete(m.st.streams, s.ID)
	m.st.writes++
	return nil
}

func (m *Store) SetStreamTitleColumn(_ context.Context, streamID, column string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.st.streams[streamID]
	if !ok {
		return sql.ErrNoRows
	}
	s.TitleColumn = column
	m.st.writes++
	return nil
}

func (m *Store) AddAssignment(_ context.Context, s *model.Stream, a *model.Assignment, col *model.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.streams[a.StreamID]; !ok {
		return fmt.Errorf("insert assignment: stream %s does not exist", a.StreamID)
	}
	if _, ok := m.st.fields[a.FieldID]; !ok {
		return fmt.Errorf("insert assignment: field %s does not exist", a.FieldID)
	}
	next := 1
	for _, existing := range m.st.assignments {
		if existing.StreamID != a.StreamID {
			continue
		}
		if existing.FieldID == a.FieldID {
			return fmt.Errorf("duplicate assignment of %s to %s", a.FieldID, a.StreamID)
		}
		if existing.SortOrder >= next {
			next = existing.SortOrder + 1
		}
	}
	if col != nil {
		cols := m.st.columns[s.TableName()]
		if cols == nil {
			return fmt.Errorf("add column %s to %s: relation does not exist", col.Name, s.TableName())
		}
		if _, ok := cols[col.Name]; ok {
			return fmt.Errorf("add column %s to %s: column already exists", col.Name, s.TableName())
		}
		cols[col.Name] = col.Type
	}
	a.SortOrder = next
	a.CreatedAt = m.now()
	cp := *a
	m.st.assignments[a.ID] = &cp
	m.st.writes++
	return nil
}

func (m *Store) UpdateAssignment(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.st.assignments[a.ID]
	if !ok {
		return sql.ErrNoRows
	}
	existing.Instructions = a.Instructions
	existing.Unique = a.Unique
	existing.Required = a.Required
	m.st.writes++
	return nil
}

func (m *Store) GetAssignment(_ context.Context, streamID, fieldID string) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.st.assignments {
		if a.StreamID == streamID && a.FieldID == fieldID {
			return m.joinLocked(a), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *Store) RemoveAssignment(_ context.Context, s *model.Stream, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.assignments[a.ID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.st.assignments, a.ID)
	if stored, ok := m.st.streams[s.ID]; ok {
		m.dropColumnLocked(stored, a.FieldSlug)
	}
	m.st.writes++
	return nil
}

func (m *Store) ListStreamAssignments(_ context.Context, streamID string) ([]*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Assignment
	for _, a := range m.st.assignments {
		if a.StreamID == streamID {
			result = append(result, m.joinLocked(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (m *Store) ListFieldAssignments(_ context.Context, fieldID string) ([]*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Assignment
	for _, a := range m.st.assignments {
		if a.FieldID == fieldID {
			result = append(result, m.joinLocked(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Store) RecordEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.st.events) + 1)
	e.CreatedAt = m.now()
	cp := *e
	m.st.events = append(m.st.events, &cp)
	return nil
}

func (m *Store) GetEvents(_ context.Context, subjectID string) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Event
	for _, e := range m.st.events {
		if e.SubjectID == subjectID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

// RunInTransaction runs fn against the store and restores the previous
// state if fn fails.
func (m *Store) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Store) Close() error {
	return nil
}

// joinLocked copies a and fills in the joined field columns.
func (m *Store) joinLocked(a *model.Assignment) *model.Assignment {
	cp := *a
	if f, ok := m.st.fields[a.FieldID]; ok {
		cp.FieldName = f.Name
		cp.FieldSlug = f.Slug
		cp.FieldType = f.Type
		cp.FieldExtra = f.Extra
	}
	return &cp
}

func (m *Store) dropColumnLocked(s *model.Stream, column string) {
	delete(m.st.columns[s.TableName()], column)
	if s.TitleColumn == column {
		s.TitleColumn = ""
	}
}

func (st state) clone() state {
	out := state{
		fields:      make(map[string]*model.Field, len(st.fields)),
		streams:     make(map[string]*model.Stream, len(st.streams)),
		assignments: make(map[string]*model.Assignment, len(st.assignments)),
		columns:     make(map[string]map[string]string, len(st.columns)),
		events:      slices.Clone(st.events),
		writes:      st.writes,
	}
	for id, f := range st.fields {
		cp := *f
		out.fields[id] = &cp
	}
	for id, s := range st.streams {
		cp := *s
		out.streams[id] = &cp
	}
	for id, a := range st.assignments {
		cp := *a
		out.assignments[id] = &cp
	}
	for table, cols := range st.columns {
		out.columns[table] = maps.Clone(cols)
	}
	return out
}
