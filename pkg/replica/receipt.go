package replica

import (
	"github.com/nspcc-dev/neo-go/pkg/io"
)

// Receipt is a log record of the accepted message. Message itself is
// stored in the timeline block of BranchID.
type Receipt struct {
	Signature []byte
	BranchID  uint64
}

// EncodeBinary implements the io.Serializable interface.
func (r *Receipt) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(r.Signature)
	w.WriteU64LE(r.BranchID)
}

// DecodeBinary implements the io.Serializable interface.
func (r *Receipt) DecodeBinary(br *io.BinReader) {
	r.Signature = br.ReadVarBytes()
	r.BranchID = br.ReadU64LE()
}

type receiptCodec struct{}

func (receiptCodec) Encode(r Receipt) ([]byte, error) {
	w := io.NewBufBinWriter()
	r.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

func (receiptCodec) Decode(data []byte) (Receipt, error) {
	var r Receipt
	br := io.NewBinReaderFromBuf(data)
	r.DecodeBinary(br)
	return r, br.Err
}
