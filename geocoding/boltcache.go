package geocoding

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"
)

var cellsBucket = []byte("geocells")

// BoltCellStore persists geocode cells in a BoltDB bucket so that
// resolved places survive process restarts and service outages.
type BoltCellStore struct {
	db *bolt.DB
}

func NewBoltCellStore(db *bolt.DB) (*BoltCellStore, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cellsBucket)
		return err
	}); err != nil {
		return nil, err
	}
	return &BoltCellStore{db: db}, nil
}

func (s *BoltCellStore) Get(key string) (CellEntry, bool, error) {
	var entry CellEntry
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(cellsBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	return entry, found, err
}

func (s *BoltCellStore) Put(key string, entry CellEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cellsBucket).Put([]byte(key), encoded)
	})
}

func (s *BoltCellStore) Visit(visit func(key string, entry CellEntry) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(cellsBucket).ForEach(func(k, v []byte) error {
			var entry CellEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			return visit(string(k), entry)
		})
	})
}
