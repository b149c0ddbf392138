// Package idset implements the per-object-type id sets the operation
// context uses for the extracted-id map and pending-dependency map
// (§3). Store is the common interface; Mem is the default in-process
// implementation and Bolt backs the same interface with an on-disk
// go.etcd.io/bbolt database for tenants whose id sets are too large to
// comfortably hold in memory for the lifetime of an operation.
package idset

// Store is a collection of id sets, one per object type.
type Store interface {
	// Add inserts id into sobject's set and reports whether it was
	// newly added (false if already present).
	Add(sobject, id string) (bool, error)

	// Remove deletes id from sobject's set, if present.
	Remove(sobject, id string) error

	// Contains reports whether id is in sobject's set.
	Contains(sobject, id string) (bool, error)

	// IDs returns every id currently in sobject's set, in no
	// particular order.
	IDs(sobject string) ([]string, error)

	// Len reports the number of ids currently in sobject's set.
	Len(sobject string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
