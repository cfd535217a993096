package storage

// Op is a single write of a Batch.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Batch is a set of writes which must be applied atomically.
type Batch struct {
	Ops []Op
}

// Backend is a flat key-value store behind Storage.
type Backend interface {
	// Get returns value stored under the key or ErrNotFound.
	Get(key []byte) ([]byte, error)
	// Keys returns sorted keys starting with the prefix.
	Keys(prefix []byte) ([][]byte, error)
	// Apply atomically applies all operations of the batch.
	Apply(*Batch) error
	Close() error
}
