package idset

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Bolt is a bbolt-backed Store for operations against tenants whose
// extracted-id or pending-dependency sets are too large to comfortably
// hold in memory for the operation's lifetime. One bucket per object
// type; presence of a key (value is always empty) means membership.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if necessary) a bbolt database at path for
// use as a Store. The caller must call Close when the operation ends.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("idset: opening bolt store at %q: %w", path, err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Add(sobject, id string) (bool, error) {
	added := false
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(sobject))
		if err != nil {
			return err
		}
		if bucket.Get([]byte(id)) != nil {
			return nil
		}
		added = true
		return bucket.Put([]byte(id), []byte{})
	})
	return added, err
}

func (b *Bolt) Remove(sobject, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sobject))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(id))
	})
}

func (b *Bolt) Contains(sobject, id string) (bool, error) {
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sobject))
		if bucket == nil {
			return nil
		}
		found = bucket.Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

func (b *Bolt) IDs(sobject string) ([]string, error) {
	var out []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sobject))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}

func (b *Bolt) Len(sobject string) (int, error) {
	count := 0
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sobject))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	return count, err
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

var _ Store = (*Bolt)(nil)
