package timeline

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/util/logicerr"
	"github.com/nspcc-dev/neo-go/pkg/io"
)

const (
	// MinIndexedDigit is the initial width (in bits) of the leaf index.
	MinIndexedDigit = 8
	// MaxIndexedDigit is the maximum width (in bits) of the leaf index.
	MaxIndexedDigit = 256

	// maxBlockEntries limits entries number accepted from the decoded block.
	maxBlockEntries = 1 << 20
)

// ErrSignatureSpaceExhausted is returned when two different signatures
// share the same leading MaxIndexedDigit bits.
var ErrSignatureSpaceExhausted = logicerr.New("signature space exhausted")

var errInvalidDigit = errors.New("invalid indexed digit")

// Entry is a leaf stored in the Block.
type Entry struct {
	Signature []byte
	// Data is the encoded leaf.
	Data []byte
}

// Block is a level-0 branch storing leaves indexed by the leading bits of
// their signatures.
type Block struct {
	digit   uint16
	entries map[string]Entry
}

// NewBlock returns empty block with the minimal index width.
func NewBlock() *Block {
	return &Block{
		digit:   MinIndexedDigit,
		entries: make(map[string]Entry),
	}
}

// IndexedDigit returns current index width in bits.
func (b *Block) IndexedDigit() int {
	return int(b.digit)
}

// Len returns the number of leaves in the block.
func (b *Block) Len() int {
	return len(b.entries)
}

// Entries returns leaves ordered by the index ascending.
func (b *Block) Entries() []Entry {
	keys := b.sortedKeys()
	res := make([]Entry, len(keys))
	for i := range keys {
		res[i] = b.entries[keys[i]]
	}
	return res
}

// Get returns entry with the given signature. Index is derived at the
// current width, so the result is always consistent with the block state.
func (b *Block) Get(sig []byte) (Entry, bool) {
	e, ok := b.entries[indexKey(sig, b.digit)]
	if !ok || !bytes.Equal(e.Signature, sig) {
		return Entry{}, false
	}
	return e, true
}

// Has checks whether leaf with the given signature is stored.
func (b *Block) Has(sig []byte) bool {
	_, ok := b.Get(sig)
	return ok
}

// Insert adds leaf to the block. It returns false if the same signature
// is already stored. Index width is doubled on every collision until all
// entries are distinguishable.
func (b *Block) Insert(sig, data []byte) (bool, error) {
	for {
		key := indexKey(sig, b.digit)

		old, ok := b.entries[key]
		if !ok {
			b.entries[key] = Entry{
				Signature: bytes.Clone(sig),
				Data:      bytes.Clone(data),
			}
			return true, nil
		}
		if bytes.Equal(old.Signature, sig) {
			return false, nil
		}
		if b.digit >= MaxIndexedDigit {
			return false, fmt.Errorf("%w: %x", ErrSignatureSpaceExhausted, sig)
		}

		b.reindex(b.digit * 2)
	}
}

func (b *Block) reindex(digit uint16) {
	m := make(map[string]Entry, len(b.entries))
	for _, e := range b.entries {
		m[indexKey(e.Signature, digit)] = e
	}
	b.digit = digit
	b.entries = m
}

func (b *Block) sortedKeys() []string {
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EncodeBinary implements the io.Serializable interface.
// Entries are written in ascending index order.
func (b *Block) EncodeBinary(w *io.BinWriter) {
	w.WriteU16LE(b.digit)

	keys := b.sortedKeys()
	w.WriteVarUint(uint64(len(keys)))
	for i := range keys {
		e := b.entries[keys[i]]
		w.WriteVarBytes(e.Signature)
		w.WriteVarBytes(e.Data)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (b *Block) DecodeBinary(r *io.BinReader) {
	b.digit = r.ReadU16LE()
	if r.Err == nil && !validDigit(b.digit) {
		r.Err = fmt.Errorf("%w: %d", errInvalidDigit, b.digit)
		return
	}

	n := r.ReadVarUint()
	if r.Err == nil && n > maxBlockEntries {
		r.Err = fmt.Errorf("too many block entries: %d", n)
		return
	}

	b.entries = make(map[string]Entry, n)
	for i := uint64(0); i < n && r.Err == nil; i++ {
		var e Entry
		e.Signature = r.ReadVarBytes()
		e.Data = r.ReadVarBytes()
		if r.Err != nil {
			return
		}

		key := indexKey(e.Signature, b.digit)
		if _, ok := b.entries[key]; ok {
			r.Err = fmt.Errorf("duplicate block index %x", key)
			return
		}
		b.entries[key] = e
	}
}

// Bytes returns binary representation of the block.
func (b *Block) Bytes() []byte {
	w := io.NewBufBinWriter()
	b.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// DecodeBlock restores block from its binary representation.
func DecodeBlock(data []byte) (*Block, error) {
	b := new(Block)
	r := io.NewBinReaderFromBuf(data)
	b.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return b, nil
}

func validDigit(d uint16) bool {
	for v := uint16(MinIndexedDigit); v <= MaxIndexedDigit; v *= 2 {
		if d == v {
			return true
		}
	}
	return false
}

// indexKey returns leading digit bits of the signature, zero-padded
// if the signature is shorter.
func indexKey(sig []byte, digit uint16) string {
	n := int(digit / 8)
	key := make([]byte, n)
	copy(key, sig)
	return string(key)
}
