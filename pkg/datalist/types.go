package datalist

import (
	"sort"
	"strconv"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"github.com/nspcc-dev/neo-go/pkg/io"
)

// Prefix is a storage prefix of all the log data.
const Prefix = "data-list"

// maxShardItems limits items number accepted from the decoded shard.
const maxShardItems = 1 << 24

// Codec converts log items to bytes and back.
type Codec[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
}

// Item is a log entry.
type Item[T any] struct {
	// InsertTime is a unique time assigned on insertion.
	InsertTime int64
	Data       T
}

type rawItem struct {
	time int64
	data []byte
}

// shard is a list of items of a single branch ordered by time.
type shard []rawItem

// EncodeBinary implements the io.Serializable interface.
func (s *shard) EncodeBinary(w *io.BinWriter) {
	w.WriteVarUint(uint64(len(*s)))
	for _, it := range *s {
		w.WriteU64LE(uint64(it.time))
		w.WriteVarBytes(it.data)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (s *shard) DecodeBinary(r *io.BinReader) {
	n := r.ReadVarUint()
	if r.Err == nil && n > maxShardItems {
		r.Err = errTooManyItems
		return
	}

	res := make(shard, 0, n)
	for i := uint64(0); i < n && r.Err == nil; i++ {
		var it rawItem
		it.time = int64(r.ReadU64LE())
		it.data = r.ReadVarBytes()
		res = append(res, it)
	}
	*s = res
}

// branchMeta links non-empty shards into a list. Zero means no neighbour.
type branchMeta struct {
	prev uint64
	next uint64
}

// metaGroup holds metas of all the shards with the same parent branch.
type metaGroup map[uint64]branchMeta

// EncodeBinary implements the io.Serializable interface.
func (g *metaGroup) EncodeBinary(w *io.BinWriter) {
	ids := make([]uint64, 0, len(*g))
	for id := range *g {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	w.WriteVarUint(uint64(len(ids)))
	for _, id := range ids {
		m := (*g)[id]
		w.WriteU64LE(id)
		w.WriteU64LE(m.prev)
		w.WriteU64LE(m.next)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (g *metaGroup) DecodeBinary(r *io.BinReader) {
	n := r.ReadVarUint()
	if r.Err == nil && n > maxShardItems {
		r.Err = errTooManyItems
		return
	}

	res := make(metaGroup, n)
	for i := uint64(0); i < n && r.Err == nil; i++ {
		id := r.ReadU64LE()
		res[id] = branchMeta{prev: r.ReadU64LE(), next: r.ReadU64LE()}
	}
	*g = res
}

// anchor holds head and tail of the shard list.
type anchor struct {
	first      uint64
	last       uint64
	secondLast uint64
}

// EncodeBinary implements the io.Serializable interface.
func (a *anchor) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(a.first)
	w.WriteU64LE(a.last)
	w.WriteU64LE(a.secondLast)
}

// DecodeBinary implements the io.Serializable interface.
func (a *anchor) DecodeBinary(r *io.BinReader) {
	a.first = r.ReadU64LE()
	a.last = r.ReadU64LE()
	a.secondLast = r.ReadU64LE()
}

func (a anchor) empty() bool {
	return a.first == 0
}

func shardPath(id uint64) storage.Path {
	return storage.NewPath(Prefix, "receipt-"+strconv.FormatUint(id, 10))
}

func groupPath(gid uint64) storage.Path {
	return storage.NewPath(Prefix, "meta-branch", "group-"+strconv.FormatUint(gid, 10))
}

func anchorPath() storage.Path {
	return storage.NewPath(Prefix, "meta")
}
