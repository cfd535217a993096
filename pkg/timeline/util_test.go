package timeline

import (
	"crypto/sha256"
	"testing"

	"github.com/nspcc-dev/cryptolalia-tree/internal/testutil"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/branch"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/stretchr/testify/require"
)

type testLeaf struct {
	Sig  []byte
	Time int64
	Body string
}

type testHelper struct{}

func (testHelper) Signature(l testLeaf) []byte { return l.Sig }
func (testHelper) CreateTime(l testLeaf) int64 { return l.Time }

func (testHelper) Marshal(l testLeaf) ([]byte, error) {
	w := io.NewBufBinWriter()
	w.WriteVarBytes(l.Sig)
	w.WriteU64LE(uint64(l.Time))
	w.WriteString(l.Body)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

func (testHelper) Unmarshal(data []byte) (testLeaf, error) {
	var l testLeaf
	r := io.NewBinReaderFromBuf(data)
	l.Sig = r.ReadVarBytes()
	l.Time = int64(r.ReadU64LE())
	l.Body = r.ReadString()
	return l, r.Err
}

// newLeaf returns leaf with the signature derived from the body.
func newLeaf(tm int64, body string) testLeaf {
	sig := sha256.Sum256([]byte(body))
	return testLeaf{Sig: sig[:], Time: tm, Body: body}
}

var testConfig = branch.Config{GroupCount: 4, Timespan: 10}

var providers = testutil.StorageProviders()

func treeConstructor(p testutil.StorageProvider) func(testing.TB) *Tree[testLeaf] {
	return func(t testing.TB) *Tree[testLeaf] {
		tr, err := New[testLeaf](p.Construct(t), testConfig, testHelper{})
		require.NoError(t, err)
		return tr
	}
}
