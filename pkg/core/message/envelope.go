package message

import (
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/digest"
	"github.com/nspcc-dev/neo-go/pkg/io"
)

// Envelope is a general-purpose chat message.
type Envelope struct {
	Time    int64
	Sender  string
	Content []byte
}

// EncodeBinary implements the io.Serializable interface.
func (e Envelope) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(uint64(e.Time))
	w.WriteString(e.Sender)
	w.WriteVarBytes(e.Content)
}

// DecodeBinary implements the io.Serializable interface.
func (e *Envelope) DecodeBinary(r *io.BinReader) {
	e.Time = int64(r.ReadU64LE())
	e.Sender = r.ReadString()
	e.Content = r.ReadVarBytes()
}

// Bytes returns binary representation of e.
func (e Envelope) Bytes() []byte {
	w := io.NewBufBinWriter()
	e.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// EnvelopeHelper is a Helper for Envelope messages. Signature is the
// SHA-256 of the binary representation.
type EnvelopeHelper struct{}

var _ Helper[Envelope] = EnvelopeHelper{}

// Signature implements Helper.
func (EnvelopeHelper) Signature(e Envelope) []byte {
	return digest.Sum(e.Bytes())
}

// CreateTime implements Helper.
func (EnvelopeHelper) CreateTime(e Envelope) int64 {
	return e.Time
}

// Marshal implements Helper.
func (EnvelopeHelper) Marshal(e Envelope) ([]byte, error) {
	return e.Bytes(), nil
}

// Unmarshal implements Helper.
func (EnvelopeHelper) Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	r := io.NewBinReaderFromBuf(data)
	e.DecodeBinary(r)
	return e, r.Err
}
