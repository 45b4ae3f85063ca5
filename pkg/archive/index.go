package archive

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/pchunk/pkg/codec"
)

// Index keys are type/<tag><id> so a prefix scan over type/<tag> yields
// matching ids oldest first. The tags/<id> entry lists the tags an id was
// indexed under, four bytes each, so Delete can find them.
var (
	typePrefix = []byte("type/")
	tagsPrefix = []byte("tags/")
)

func typeKey(tag codec.Tag, id ksuid.KSUID) []byte {
	k := make([]byte, 0, len(typePrefix)+len(tag)+len(id))
	k = append(k, typePrefix...)
	k = append(k, tag[:]...)
	return append(k, id.Bytes()...)
}

func typeScanPrefix(tag codec.Tag) []byte {
	return append(bytes.Clone(typePrefix), tag[:]...)
}

func tagsKey(id ksuid.KSUID) []byte {
	return append(bytes.Clone(tagsPrefix), id.Bytes()...)
}

func indexTypes(b *pebble.Batch, id ksuid.KSUID, types []codec.Tag) error {
	seen := make(map[codec.Tag]struct{}, len(types))
	var list []byte
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		list = append(list, t[:]...)

		if err := b.Set(typeKey(t, id), nil, nil); err != nil {
			return err
		}
	}
	if len(list) == 0 {
		return nil
	}
	return b.Set(tagsKey(id), list, nil)
}

func unindexTypes(b *pebble.Batch, id ksuid.KSUID, types []codec.Tag) error {
	for _, t := range types {
		if err := b.Delete(typeKey(t, id), nil); err != nil {
			return err
		}
	}
	if len(types) == 0 {
		return nil
	}
	return b.Delete(tagsKey(id), nil)
}

// Types returns the chunk types id was indexed under, in first-seen order.
func (a *Archive) Types(id ksuid.KSUID) ([]codec.Tag, error) {
	data, closer, err := a.db.Get(tagsKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	if len(data)%len(codec.Tag{}) != 0 {
		return nil, fmt.Errorf("corrupt type list for %s: %d bytes", id, len(data))
	}

	types := make([]codec.Tag, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		var t codec.Tag
		copy(t[:], data[i:i+4])
		types = append(types, t)
	}
	return types, nil
}

// ListByType returns the ids of containers holding a chunk of type tag,
// oldest first.
func (a *Archive) ListByType(tag codec.Tag) ([]ksuid.KSUID, error) {
	return a.scanIDs(typeScanPrefix(tag))
}
