package timeline

import (
	"sort"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/digest"
	"github.com/nspcc-dev/neo-go/pkg/io"
)

// hashInfo is a cached hash of the branch at level 1 and higher.
type hashInfo struct {
	hash  []byte
	dirty bool
	// subDirty holds children whose contribution must be recomputed.
	subDirty map[uint64]struct{}
	// subHash holds non-empty contributions of the children.
	subHash map[uint64][]byte
}

func newHashInfo() *hashInfo {
	return &hashInfo{
		subDirty: make(map[uint64]struct{}),
		subHash:  make(map[uint64][]byte),
	}
}

// markDirty registers child change. Returns false if it has been already
// registered.
func (h *hashInfo) markDirty(child uint64) bool {
	if _, ok := h.subDirty[child]; ok {
		return false
	}
	h.dirty = true
	h.subDirty[child] = struct{}{}
	delete(h.subHash, child)
	return true
}

func (h *hashInfo) setSubHash(child uint64, hash []byte) {
	if len(hash) == 0 {
		delete(h.subHash, child)
	} else {
		h.subHash[child] = hash
	}
	delete(h.subDirty, child)
}

func (h *hashInfo) dirtyChildren() []uint64 {
	return sortedIDs(h.subDirty)
}

// aggregate recomputes hash from children contributions ordered by id.
func (h *hashInfo) aggregate() {
	ids := make([]uint64, 0, len(h.subHash))
	for id := range h.subHash {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	hashes := make([][]byte, len(ids))
	for i := range ids {
		hashes[i] = h.subHash[ids[i]]
	}

	h.hash = digest.Aggregate(hashes)
	h.dirty = false
}

// EncodeBinary implements the io.Serializable interface.
func (h *hashInfo) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(h.hash)
	w.WriteBool(h.dirty)

	dirty := sortedIDs(h.subDirty)
	w.WriteVarUint(uint64(len(dirty)))
	for i := range dirty {
		w.WriteU64LE(dirty[i])
	}

	ids := make([]uint64, 0, len(h.subHash))
	for id := range h.subHash {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	w.WriteVarUint(uint64(len(ids)))
	for i := range ids {
		w.WriteU64LE(ids[i])
		w.WriteVarBytes(h.subHash[ids[i]])
	}
}

// DecodeBinary implements the io.Serializable interface.
func (h *hashInfo) DecodeBinary(r *io.BinReader) {
	h.hash = r.ReadVarBytes(digest.Size)
	if len(h.hash) == 0 {
		h.hash = nil
	}
	h.dirty = r.ReadBool()

	n := r.ReadVarUint()
	h.subDirty = make(map[uint64]struct{})
	for i := uint64(0); i < n && r.Err == nil; i++ {
		h.subDirty[r.ReadU64LE()] = struct{}{}
	}

	n = r.ReadVarUint()
	h.subHash = make(map[uint64][]byte)
	for i := uint64(0); i < n && r.Err == nil; i++ {
		id := r.ReadU64LE()
		h.subHash[id] = r.ReadVarBytes(digest.Size)
	}
}

func sortedIDs(m map[uint64]struct{}) []uint64 {
	res := make([]uint64, 0, len(m))
	for id := range m {
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
