// Package catalog keeps the registered datasets. Datasets are replace-only:
// once added, a dataset's table is never mutated, so queries may keep using
// a dataset they looked up while it is being removed.
package catalog

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/razeghi71/insightq/internal/logger"
	"github.com/razeghi71/insightq/schema"
	"github.com/razeghi71/insightq/table"
)

var (
	ErrDatasetExists   = errors.New("dataset already exists")
	ErrDatasetNotFound = errors.New("dataset not found")
)

// Dataset is an immutable snapshot of one dataset's records. Table columns
// are namespaced keys ("<id>_<field>").
type Dataset struct {
	ID    string
	Kind  schema.Kind
	Table *table.Table
}

// NumRows returns the number of records.
func (d *Dataset) NumRows() int {
	if d.Table == nil {
		return 0
	}
	return d.Table.Len()
}

// Catalog is what the query engine reads from.
type Catalog interface {
	Lookup(id string) (*Dataset, bool)
	Exists(id string) bool
}

// Info summarises a dataset for listings.
type Info struct {
	ID      string      `json:"id"`
	Kind    schema.Kind `json:"kind"`
	NumRows int         `json:"numRows"`
}

// Memory is an in-memory Catalog safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
}

var _ Catalog = (*Memory)(nil)

// NewMemory creates an empty catalog.
func NewMemory() *Memory {
	return &Memory{datasets: make(map[string]*Dataset)}
}

// Add registers a dataset under its id.
func (m *Memory) Add(ds *Dataset) error {
	if err := schema.ValidateID(ds.ID); err != nil {
		return err
	}
	s, ok := schema.For(ds.Kind)
	if !ok {
		return errors.Wrapf(schema.ErrUnknownKind, "%q", ds.Kind)
	}
	if ds.Table == nil {
		return errors.Newf("dataset %q has no records", ds.ID)
	}
	for _, col := range s.Columns(ds.ID) {
		if ds.Table.ColIndex(col) < 0 {
			return errors.Newf("dataset %q is missing column %q", ds.ID, col)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.datasets[ds.ID]; exists {
		return errors.Wrapf(ErrDatasetExists, "%q", ds.ID)
	}
	m.datasets[ds.ID] = ds
	logger.Info("dataset added", "id", ds.ID, "kind", ds.Kind, "rows", ds.NumRows())
	return nil
}

// Remove unregisters a dataset and returns its id.
func (m *Memory) Remove(id string) (string, error) {
	if err := schema.ValidateID(id); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.datasets[id]; !exists {
		return "", errors.Wrapf(ErrDatasetNotFound, "%q", id)
	}
	delete(m.datasets, id)
	logger.Info("dataset removed", "id", id)
	return id, nil
}

// List returns all datasets sorted by id.
func (m *Memory) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.datasets))
	for _, ds := range m.datasets {
		out = append(out, Info{ID: ds.ID, Kind: ds.Kind, NumRows: ds.NumRows()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) Lookup(id string) (*Dataset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.datasets[id]
	return ds, ok
}

func (m *Memory) Exists(id string) bool {
	_, ok := m.Lookup(id)
	return ok
}
