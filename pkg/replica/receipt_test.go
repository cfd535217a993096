package replica

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReceiptCodec(t *testing.T) {
	var c receiptCodec

	r := Receipt{Signature: []byte{1, 2, 3, 4, 5}, BranchID: 1 << 40}
	data, err := c.Encode(r)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	res, err := c.Decode(data)
	require.NoError(t, err)
	require.Equal(t, r, res)

	_, err = c.Decode(data[:len(data)-1])
	require.Error(t, err)
}
