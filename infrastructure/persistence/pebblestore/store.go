// Package pebblestore persists orders, carts, address books and users in an
// embedded Pebble database. Records are JSON under prefixed keys:
//
//	seq:<name>                      last allocated id
//	o:<id>                          order
//	on:<number>                     order number -> id
//	os:<status>:<order nanos>:<id>  status/time index used by the sweeper
//	oi:<order id>:<item id>         order line item
//	u:<id>  c:<user id>:<id>  a:<id>
//
// Writes go through an indexed batch. Inside a unit of work the batch lives in
// the context and is committed once; otherwise each call commits its own.
package pebblestore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
)

type Store struct {
	db *pebble.DB
	// mu serializes write batches so read-check-write sequences are atomic.
	mu sync.Mutex
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*Store, error) {
	opts := &pebble.Options{
		MemTableSize: 16 << 20,
		MaxOpenFiles: 500,
		BytesPerSync: 512 << 10,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type batchKey struct{}

func contextWithBatch(ctx context.Context, b *pebble.Batch) context.Context {
	return context.WithValue(ctx, batchKey{}, b)
}

func batchFromContext(ctx context.Context) *pebble.Batch {
	if b, ok := ctx.Value(batchKey{}).(*pebble.Batch); ok {
		return b
	}
	return nil
}

type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// reader returns the unit of work batch when present so reads observe its
// uncommitted writes.
func (s *Store) reader(ctx context.Context) reader {
	if b := batchFromContext(ctx); b != nil {
		return b
	}
	return s.db
}

// update runs fn against the context batch, or against a fresh batch that is
// committed with pebble.Sync when fn succeeds.
func (s *Store) update(ctx context.Context, fn func(b *pebble.Batch) error) error {
	if b := batchFromContext(ctx); b != nil {
		return fn(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewIndexedBatch()
	defer b.Close()
	if err := fn(b); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// getJSON decodes the value at key into out. found is false when the key is absent.
func getJSON(r reader, key []byte, out any) (found bool, err error) {
	data, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	defer closer.Close()

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return true, nil
}

func setJSON(b *pebble.Batch, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	return b.Set(key, data, nil)
}

// scanJSON calls fn with the raw value of every key in [lower, upper), in key order.
func scanJSON(r reader, lower, upper []byte, fn func(value []byte) error) error {
	iter, err := r.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// nextID allocates the next id in the named sequence.
func nextID(b *pebble.Batch, name string) (int64, error) {
	key := []byte("seq:" + name)
	var last uint64
	data, closer, err := b.Get(key)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		return 0, fmt.Errorf("failed to read sequence %s: %w", name, err)
	default:
		last = binary.BigEndian.Uint64(data)
		closer.Close()
	}

	last++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, last)
	if err := b.Set(key, buf, nil); err != nil {
		return 0, err
	}
	return int64(last), nil
}

func padded(n int64) string { return fmt.Sprintf("%020d", n) }

// keyUpperBound returns the smallest key greater than every key with prefix.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
