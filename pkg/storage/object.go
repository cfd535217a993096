package storage

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
)

// GetObject reads binary data under the path and decodes it into obj.
func GetObject(r Reader, p Path, obj io.Serializable) error {
	data, err := r.GetBinary(p)
	if err != nil {
		return err
	}

	br := io.NewBinReaderFromBuf(data)
	obj.DecodeBinary(br)
	if br.Err != nil {
		return fmt.Errorf("decode %s: %w", p, br.Err)
	}
	return nil
}

// SetObject encodes obj and writes it under the path.
func SetObject(w Writer, p Path, obj io.Serializable) error {
	bw := io.NewBufBinWriter()
	obj.EncodeBinary(bw.BinWriter)
	if bw.Err != nil {
		return fmt.Errorf("encode %s: %w", p, bw.Err)
	}
	return w.SetBinary(p, bw.Bytes())
}
