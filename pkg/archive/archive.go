// Package archive stores raw PNG containers in a pebble database keyed by
// KSUID, so uploads list in arrival order. Each container can be indexed by
// the chunk types it holds.
package archive

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/pchunk/pkg/codec"
)

// ErrNotFound is returned when no container has the requested id
var ErrNotFound = errors.New("container not found")

var keyPrefix = []byte("png/")

// Archive is a pebble-backed container store
type Archive struct {
	db *pebble.DB
}

// Open opens or creates an archive in dir.
func Open(dir string) (*Archive, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &Archive{db: db}, nil
}

func key(id ksuid.KSUID) []byte {
	return append(bytes.Clone(keyPrefix), id.Bytes()...)
}

// Put stores data under a new id and indexes it under each of types.
func (a *Archive) Put(data []byte, types ...codec.Tag) (ksuid.KSUID, error) {
	id := ksuid.New()

	b := a.db.NewBatch()
	defer b.Close()

	if err := b.Set(key(id), data, nil); err != nil {
		return ksuid.Nil, err
	}
	if err := indexTypes(b, id, types); err != nil {
		return ksuid.Nil, err
	}
	if err := b.Commit(pebble.NoSync); err != nil {
		return ksuid.Nil, fmt.Errorf("failed to commit archive batch: %w", err)
	}
	return id, nil
}

// Get returns a copy of the stored container.
func (a *Archive) Get(id ksuid.KSUID) ([]byte, error) {
	data, closer, err := a.db.Get(key(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// data is only valid until closer is closed
	return bytes.Clone(data), nil
}

// Delete removes a container and its index entries. Deleting a missing id
// returns ErrNotFound.
func (a *Archive) Delete(id ksuid.KSUID) error {
	if _, err := a.Get(id); err != nil {
		return err
	}

	types, err := a.Types(id)
	if err != nil {
		return err
	}

	b := a.db.NewBatch()
	defer b.Close()

	if err := b.Delete(key(id), nil); err != nil {
		return err
	}
	if err := unindexTypes(b, id, types); err != nil {
		return err
	}
	return b.Commit(pebble.NoSync)
}

// List returns every stored id, oldest first.
func (a *Archive) List() ([]ksuid.KSUID, error) {
	return a.scanIDs(keyPrefix)
}

// scanIDs returns the ids suffixing every key under prefix, in key order.
func (a *Archive) scanIDs(prefix []byte) ([]ksuid.KSUID, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []ksuid.KSUID
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key()[len(prefix):])
		if err != nil {
			return nil, fmt.Errorf("corrupt archive key %x: %w", iter.Key(), err)
		}
		ids = append(ids, id)
	}
	return ids, iter.Error()
}

// Close flushes and closes the database.
func (a *Archive) Close() error {
	if err := a.db.Flush(); err != nil {
		a.db.Close()
		return err
	}
	return a.db.Close()
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := bytes.Clone(p)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
