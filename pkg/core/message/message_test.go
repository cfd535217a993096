package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeHelper(t *testing.T) {
	var h EnvelopeHelper

	e := Envelope{Time: 42, Sender: "gaubee", Content: []byte("hi~")}

	data, err := h.Marshal(e)
	require.NoError(t, err)

	res, err := h.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, e, res)
	require.True(t, EqualSignature[Envelope](h, res, h.Signature(e)))

	_, err = h.Unmarshal(data[:len(data)-1])
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	var h EnvelopeHelper

	a := Envelope{Time: 1, Sender: "a"}
	b := Envelope{Time: 2, Sender: "a"}
	c := Envelope{Time: 2, Sender: "b"}

	require.Equal(t, -1, Compare[Envelope](h, a, b))
	require.Equal(t, 1, Compare[Envelope](h, b, a))
	require.Equal(t, 0, Compare[Envelope](h, c, c))
	require.NotEqual(t, 0, Compare[Envelope](h, b, c))
}
