package message

import (
	"bytes"
	"cmp"
)

// Helper provides uniform access to the properties of opaque messages
// stored in the timeline.
type Helper[D any] interface {
	// Signature returns fixed-length fingerprint of the message content.
	Signature(D) []byte
	// CreateTime returns message creation time used for bucketing.
	CreateTime(D) int64
	// Marshal encodes message into its storage/wire form.
	Marshal(D) ([]byte, error)
	// Unmarshal restores message from Marshal output.
	Unmarshal([]byte) (D, error)
}

// EqualSignature checks whether msg has the expected signature.
func EqualSignature[D any](h Helper[D], msg D, sig []byte) bool {
	return bytes.Equal(h.Signature(msg), sig)
}

// Compare orders messages by creation time, then by signature.
func Compare[D any](h Helper[D], a, b D) int {
	if c := cmp.Compare(h.CreateTime(a), h.CreateTime(b)); c != 0 {
		return c
	}
	return bytes.Compare(h.Signature(a), h.Signature(b))
}
