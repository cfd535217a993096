package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/compression"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when requested path has no data.
	ErrNotFound = errors.New("path not found")
	// ErrClosed is returned from operations on a closed storage.
	ErrClosed = errors.New("storage is closed")
	// ErrOutOfScope is returned when transaction touches path outside its prefix.
	ErrOutOfScope = errors.New("path is out of transaction scope")
	// ErrTxDone is returned from operations on committed or aborted transaction.
	ErrTxDone = errors.New("transaction is already finished")
)

// Reader provides read access to the path-addressed blob storage.
type Reader interface {
	// GetBinary returns data stored under the path. Returns ErrNotFound
	// if there is nothing.
	GetBinary(Path) ([]byte, error)
	// Has checks whether some data is stored under the path.
	Has(Path) (bool, error)
	// ListChildren returns sorted names of the direct children of the path.
	ListChildren(Path) ([]string, error)
}

// Writer provides write access to the path-addressed blob storage.
type Writer interface {
	SetBinary(Path, []byte) error
	Del(Path) error
}

// ReadWriter is both Reader and Writer.
type ReadWriter interface {
	Reader
	Writer
}

// Tx is a prefix-scoped transaction. Writes are buffered and visible
// to the reads of the same transaction only. Either Commit or Abort
// MUST be called to release the prefix lock.
type Tx interface {
	ReadWriter
	Commit() error
	Abort()
}

// Storage is a path-addressed blob storage with prefix transactions.
type Storage struct {
	log     *zap.Logger
	backend Backend
	locks   *lockManager
	comp    *compression.Config

	closeMtx sync.RWMutex
	closed   bool
}

// Option is an option for storage constructor.
type Option func(*Storage)

// WithLogger returns option to specify logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Storage) {
		s.log = l
	}
}

// WithCompression returns option to compress stored values. Config must be
// initialized. Uncompressed values written earlier stay readable.
func WithCompression(c *compression.Config) Option {
	return func(s *Storage) {
		s.comp = c
	}
}

// New creates new Storage over the given backend.
func New(b Backend, opts ...Option) *Storage {
	s := &Storage{
		log:     zap.NewNop(),
		backend: b,
		locks:   newLockManager(),
	}

	for i := range opts {
		opts[i](s)
	}

	return s
}

// Begin opens transaction scoped to the given prefix. It blocks until all
// earlier transactions on the overlapping prefixes are finished.
func (s *Storage) Begin(ctx context.Context, prefix Path) (Tx, error) {
	s.closeMtx.RLock()
	defer s.closeMtx.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	key := prefix.String()
	if err := s.locks.acquire(ctx, key); err != nil {
		return nil, err
	}

	return &tx{
		s:      s,
		prefix: key,
		writes: make(map[string][]byte),
	}, nil
}

// Update runs f inside the transaction on prefix, commits on success and
// aborts otherwise.
func (s *Storage) Update(ctx context.Context, prefix Path, f func(ReadWriter) error) error {
	t, err := s.Begin(ctx, prefix)
	if err != nil {
		return err
	}

	if err := f(t); err != nil {
		t.Abort()
		return err
	}

	return t.Commit()
}

// GetBinary implements Reader.
func (s *Storage) GetBinary(p Path) ([]byte, error) {
	s.closeMtx.RLock()
	defer s.closeMtx.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	return s.get(p.String())
}

// Has implements Reader.
func (s *Storage) Has(p Path) (bool, error) {
	_, err := s.GetBinary(p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ListChildren implements Reader.
func (s *Storage) ListChildren(p Path) ([]string, error) {
	s.closeMtx.RLock()
	defer s.closeMtx.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	set, err := s.children(p.String())
	if err != nil {
		return nil, err
	}
	return sortedKeys(set), nil
}

// SetBinary implements Writer. It is a single-write transaction.
func (s *Storage) SetBinary(p Path, data []byte) error {
	return s.Update(context.Background(), p, func(w ReadWriter) error {
		return w.SetBinary(p, data)
	})
}

// Del implements Writer. It is a single-delete transaction.
func (s *Storage) Del(p Path) error {
	return s.Update(context.Background(), p, func(w ReadWriter) error {
		return w.Del(p)
	})
}

// Close closes the underlying backend. Pending transactions fail on commit.
func (s *Storage) Close() error {
	s.closeMtx.Lock()
	defer s.closeMtx.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.backend.Close()
	if s.comp != nil {
		if cErr := s.comp.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}
	return err
}

func (s *Storage) get(key string) ([]byte, error) {
	data, err := s.backend.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if s.comp == nil {
		return data, nil
	}

	data, err = s.comp.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	return data, nil
}

// children returns direct children names of key in the backend.
func (s *Storage) children(key string) (map[string]struct{}, error) {
	prefix := key + Separator
	if key == "" {
		prefix = ""
	}

	keys, err := s.backend.Keys([]byte(prefix))
	if err != nil {
		return nil, err
	}

	res := make(map[string]struct{})
	for i := range keys {
		if name, ok := childName(prefix, string(keys[i])); ok {
			res[name] = struct{}{}
		}
	}
	return res, nil
}

func (s *Storage) apply(b *Batch) error {
	s.closeMtx.RLock()
	defer s.closeMtx.RUnlock()
	if s.closed {
		return ErrClosed
	}

	if s.comp != nil {
		for i := range b.Ops {
			if !b.Ops[i].Delete {
				b.Ops[i].Value = s.comp.Compress(b.Ops[i].Value)
			}
		}
	}

	return s.backend.Apply(b)
}

func childName(prefix, key string) (string, bool) {
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
		return "", false
	}
	rest := key[len(prefix):]
	if i := strings.Index(rest, Separator); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}

func sortedKeys(m map[string]struct{}) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
