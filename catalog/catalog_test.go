package catalog

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/razeghi71/insightq/schema"
	"github.com/razeghi71/insightq/table"
)

func roomsDataset(id string) *Dataset {
	s, _ := schema.For(schema.Rooms)
	t := table.NewTable(s.Columns(id))
	vals := make([]table.Value, len(t.Columns))
	for i, f := range s.Fields() {
		if typ, _ := s.FieldType(f); typ == table.TypeNumber {
			vals[i] = table.Number(1)
		} else {
			vals[i] = table.Text("x")
		}
	}
	t.AddRow(vals)
	return &Dataset{ID: id, Kind: schema.Rooms, Table: t}
}

func TestAddLookupRemove(t *testing.T) {
	c := NewMemory()
	require.NoError(t, c.Add(roomsDataset("rooms")))
	require.True(t, c.Exists("rooms"))

	ds, ok := c.Lookup("rooms")
	require.True(t, ok)
	require.Equal(t, 1, ds.NumRows())

	id, err := c.Remove("rooms")
	require.NoError(t, err)
	require.Equal(t, "rooms", id)
	require.False(t, c.Exists("rooms"))

	// the removed snapshot stays usable
	require.Equal(t, 1, ds.NumRows())
}

func TestAddRejects(t *testing.T) {
	c := NewMemory()
	require.NoError(t, c.Add(roomsDataset("rooms")))

	err := c.Add(roomsDataset("rooms"))
	require.True(t, errors.Is(err, ErrDatasetExists))

	err = c.Add(roomsDataset("my_rooms"))
	require.True(t, errors.Is(err, schema.ErrInvalidDatasetID))

	err = c.Add(roomsDataset("  "))
	require.True(t, errors.Is(err, schema.ErrInvalidDatasetID))

	wrongKind := roomsDataset("other")
	wrongKind.Kind = schema.Courses
	require.Error(t, c.Add(wrongKind))

	require.Error(t, c.Add(&Dataset{ID: "empty", Kind: schema.Rooms}))
}

func TestRemoveRejects(t *testing.T) {
	c := NewMemory()
	_, err := c.Remove("missing")
	require.True(t, errors.Is(err, ErrDatasetNotFound))

	_, err = c.Remove("bad_id")
	require.True(t, errors.Is(err, schema.ErrInvalidDatasetID))
}

func TestList(t *testing.T) {
	c := NewMemory()
	require.NoError(t, c.Add(roomsDataset("zeta")))
	require.NoError(t, c.Add(roomsDataset("alpha")))
	require.Equal(t, []Info{
		{ID: "alpha", Kind: schema.Rooms, NumRows: 1},
		{ID: "zeta", Kind: schema.Rooms, NumRows: 1},
	}, c.List())
}

func TestConcurrentReaders(t *testing.T) {
	c := NewMemory()
	require.NoError(t, c.Add(roomsDataset("rooms")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if ds, ok := c.Lookup("rooms"); ok {
					_ = ds.NumRows()
				}
			}
		}()
	}
	_, err := c.Remove("rooms")
	require.NoError(t, err)
	wg.Wait()
}
