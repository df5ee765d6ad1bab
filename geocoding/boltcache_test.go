package geocoding

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func runTestWithCellStore(t *testing.T, test func(t *testing.T, store *BoltCellStore)) {
	path := filepath.Join(t.TempDir(), "geocells.db")
	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer db.Close()
	store, err := NewBoltCellStore(db)
	require.NoError(t, err)
	test(t, store)
}

func TestBoltCellStorePutThenGet(t *testing.T) {
	runTestWithCellStore(t, func(t *testing.T, store *BoltCellStore) {
		entry := CellEntry{
			Place:      Place{Name: "Wien, Austria", City: "Wien", Country: "Austria"},
			Found:      true,
			ResolvedAt: time.Now(),
		}
		require.NoError(t, store.Put("48.212,16.365", entry))

		got, found, err := store.Get("48.212,16.365")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, entry.Place, got.Place)
		assert.True(t, got.Found)
	})
}

func TestBoltCellStoreMiss(t *testing.T) {
	runTestWithCellStore(t, func(t *testing.T, store *BoltCellStore) {
		_, found, err := store.Get("0.000,0.000")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestBoltCellStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocells.db")

	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	store, err := NewBoltCellStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Put("37.775,-122.419", CellEntry{
		Place: Place{Name: "San Francisco, United States"},
		Found: true,
	}))
	require.NoError(t, db.Close())

	db, err = bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer db.Close()
	store, err = NewBoltCellStore(db)
	require.NoError(t, err)

	entry, found, err := store.Get("37.775,-122.419")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "San Francisco, United States", entry.Place.Name)

	var cells int
	require.NoError(t, store.Visit(func(key string, entry CellEntry) error {
		cells++
		return nil
	}))
	assert.Equal(t, 1, cells)
}
