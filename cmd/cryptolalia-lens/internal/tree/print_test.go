package tree

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPrintRoute(t *testing.T) {
	h := []byte{0xde, 0xad, 0xbe, 0xef}

	var buf bytes.Buffer
	printRoute(&buf, timeline.Route{
		{Level: 0, BranchID: 5, Hash: h},
		{Level: 1, BranchID: 1},
	})

	out := buf.String()
	require.Contains(t, out, "LEVEL")
	require.Contains(t, out, hex.EncodeToString(h))
	require.Contains(t, out, "<empty>")
}

func TestPrintChildren(t *testing.T) {
	var buf bytes.Buffer
	printChildren(&buf, []timeline.Child{
		{BranchID: 7, Hash: []byte{1}},
		{BranchID: 9, Hash: []byte{2}},
	})

	out := buf.String()
	require.Contains(t, out, "BRANCH")
	require.Contains(t, out, "01")
	require.Contains(t, out, "02")
}

func TestPrintBlock(t *testing.T) {
	env := message.Envelope{Time: 42, Sender: "alice", Content: []byte("hi")}
	sig := message.EnvelopeHelper{}.Signature(env)

	b := timeline.NewBlock()
	_, err := b.Insert(sig, env.Bytes())
	require.NoError(t, err)
	_, err = b.Insert(bytes.Repeat([]byte{0xff}, len(sig)), []byte{1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printBlock(&buf, 3, b))

	var v blockView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &v))
	require.EqualValues(t, 3, v.Branch)
	require.Len(t, v.Leaves, 2)

	var good, bad int
	for _, l := range v.Leaves {
		if l.Error != "" {
			bad++
			continue
		}
		good++
		require.Equal(t, base58.Encode(sig), l.Signature)
		require.Equal(t, "alice", l.Sender)
		require.EqualValues(t, 42, l.Time)
	}
	require.Equal(t, 1, good)
	require.Equal(t, 1, bad)

	t.Run("missing", func(t *testing.T) {
		buf.Reset()
		require.NoError(t, printBlock(&buf, 8, nil))
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &v))
		require.Empty(t, v.Leaves)
	})
}
