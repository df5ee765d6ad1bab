package ledger

import (
	"encoding/json"
	"time"

	"bitbucket.org/kleinnic74/photopost/domain"

	bolt "go.etcd.io/bbolt"
)

var photosBucket = []byte("photos")

// BoltLedger stores publication records in a BoltDB bucket, one JSON
// document per photo identity. Every mutation runs in a single bolt
// transaction, a crash between calls never leaves a half-written
// record.
type BoltLedger struct {
	db *bolt.DB
}

func NewBoltLedger(db *bolt.DB) (*BoltLedger, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(photosBucket)
		return err
	}); err != nil {
		return nil, err
	}
	return &BoltLedger{db: db}, nil
}

func (l *BoltLedger) Get(id domain.ID) (*PhotoRecord, bool, error) {
	var rec PhotoRecord
	var found bool
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(photosBucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if !found || err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

func (l *BoltLedger) IsPublished(id domain.ID) (bool, error) {
	rec, found, err := l.Get(id)
	if err != nil || !found {
		return false, err
	}
	return rec.Status == Published, nil
}

func (l *BoltLedger) MarkPending(rec PhotoRecord) error {
	return l.update(rec.ID, func(existing *PhotoRecord) (*PhotoRecord, error) {
		if existing != nil {
			if existing.Status == Published {
				return nil, AlreadyPublishedError(rec.ID)
			}
			rec.Attempts = existing.Attempts
		}
		rec.Status = Pending
		rec.Attempts++
		rec.LastAttempt = time.Now()
		rec.Reason = ""
		return &rec, nil
	})
}

func (l *BoltLedger) MarkPublished(id domain.ID, postURI, postLink string) error {
	return l.update(id, func(existing *PhotoRecord) (*PhotoRecord, error) {
		if existing == nil {
			return nil, NotFound(id)
		}
		if existing.Status == Published {
			if existing.PostURI == postURI {
				return existing, nil
			}
			return nil, AlreadyPublishedError(id)
		}
		existing.Status = Published
		existing.PostURI = postURI
		existing.PostLink = postLink
		existing.LastAttempt = time.Now()
		existing.Reason = ""
		return existing, nil
	})
}

func (l *BoltLedger) MarkFailed(id domain.ID, reason string) error {
	return l.update(id, func(existing *PhotoRecord) (*PhotoRecord, error) {
		if existing == nil {
			return nil, NotFound(id)
		}
		if existing.Status == Published {
			return nil, AlreadyPublishedError(id)
		}
		existing.Status = Failed
		existing.Reason = reason
		existing.LastAttempt = time.Now()
		return existing, nil
	})
}

func (l *BoltLedger) Reset(id domain.ID) error {
	return l.update(id, func(existing *PhotoRecord) (*PhotoRecord, error) {
		if existing == nil {
			return nil, NotFound(id)
		}
		existing.Status = Pending
		existing.PostURI = ""
		existing.PostLink = ""
		existing.Reason = ""
		return existing, nil
	})
}

func (l *BoltLedger) All() ([]PhotoRecord, error) {
	var records []PhotoRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(photosBucket).ForEach(func(k, v []byte) error {
			var rec PhotoRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

func (l *BoltLedger) update(id domain.ID, mutate func(existing *PhotoRecord) (*PhotoRecord, error)) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(photosBucket)
		var existing *PhotoRecord
		if v := b.Get([]byte(id)); v != nil {
			var rec PhotoRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			existing = &rec
		}
		updated, err := mutate(existing)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), encoded)
	})
}
