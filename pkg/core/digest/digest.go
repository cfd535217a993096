package digest

import (
	"hash"

	"github.com/minio/sha256-simd"
)

// Size is the length of a non-empty digest.
const Size = sha256.Size

// Sum returns SHA-256 checksum of data.
func Sum(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Builder accumulates data for a streaming checksum calculation.
type Builder struct {
	h hash.Hash
}

// NewBuilder returns Builder ready to accept data.
func NewBuilder() *Builder {
	return &Builder{h: sha256.New()}
}

// Update appends data to the checksum input.
func (b *Builder) Update(data []byte) *Builder {
	_, _ = b.h.Write(data) // never returns an error
	return b
}

// Digest returns the checksum of all data passed so far.
func (b *Builder) Digest() []byte {
	return b.h.Sum(nil)
}

// Aggregate combines ordered child hashes into the parent hash.
// An empty list yields an empty hash, a single hash is passed through
// as is, otherwise the result is SHA-256 of the concatenation.
func Aggregate(hashes [][]byte) []byte {
	switch len(hashes) {
	case 0:
		return nil
	case 1:
		return hashes[0]
	}

	b := NewBuilder()
	for i := range hashes {
		b.Update(hashes[i])
	}
	return b.Digest()
}
