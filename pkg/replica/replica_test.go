package replica

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/cryptolalia-tree/internal/testutil"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/branch"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/datalist"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var testConfig = branch.Config{GroupCount: 4, Timespan: 10}

type notifications struct {
	mtx  sync.Mutex
	list []Notification
	err  error
}

func (n *notifications) Notify(_ context.Context, x Notification) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.list = append(n.list, x)
	return n.err
}

func newReplica(t *testing.T, st *storage.Storage, opts ...Option) *Replica[message.Envelope] {
	var now int64 = 1000
	opts = append([]Option{WithClock(func() int64 { return now })}, opts...)

	r, err := New[message.Envelope](st, testConfig, message.EnvelopeHelper{}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })
	return r
}

func envelope(tm int64, content string) message.Envelope {
	return message.Envelope{Time: tm, Sender: "alice", Content: []byte(content)}
}

func TestReplica_AddMsg(t *testing.T) {
	ctx := context.Background()

	for _, p := range testutil.StorageProviders() {
		t.Run(p.Name, func(t *testing.T) {
			n := new(notifications)
			r := newReplica(t, p.Construct(t), WithNotifier(n))

			msg := envelope(15, "hello")
			ok, err := r.AddMsg(ctx, msg)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = r.AddMsg(ctx, msg)
			require.NoError(t, err)
			require.False(t, ok)

			list, err := r.GetMsgList(ctx, 0, Query{Order: datalist.Up})
			require.NoError(t, err)
			require.Equal(t, []Message[message.Envelope]{{ReceiptTime: 1000, Content: msg}}, list)

			require.Len(t, n.list, 1)
			require.EqualValues(t, 1000, n.list[0].ReceiptTime)
			require.EqualValues(t, 2, n.list[0].BranchID)
			require.Equal(t, message.EnvelopeHelper{}.Signature(msg), n.list[0].Signature)
		})
	}
}

func TestReplica_GetMsgList(t *testing.T) {
	ctx := context.Background()
	r := newReplica(t, testutil.StorageProviders()[0].Construct(t))

	var msgs []message.Envelope
	for i, s := range []string{"a", "b", "c", "d", "e"} {
		msgs = append(msgs, envelope(int64(i*30), s))
	}

	res, err := r.AddManyMsg(ctx, append(msgs, msgs[1]))
	require.NoError(t, err)
	require.Equal(t, []bool{true, true, true, true, true, false}, res)

	contents := func(list []Message[message.Envelope]) []string {
		var s []string
		for i := range list {
			s = append(s, string(list[i].Content.Content))
		}
		return s
	}

	list, err := r.GetMsgList(ctx, 0, Query{Order: datalist.Up})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, contents(list))
	for i := range list {
		require.EqualValues(t, 1000+i, list[i].ReceiptTime)
	}

	list, err = r.GetMsgList(ctx, 2000, Query{})
	require.NoError(t, err)
	require.Equal(t, []string{"e", "d", "c", "b", "a"}, contents(list))

	list, err = r.GetMsgList(ctx, 2000, Query{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"d", "c"}, contents(list))

	list, err = r.GetMsgList(ctx, 1002, Query{Order: datalist.Up, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "d", "e"}, contents(list))
}

func TestReplica_Damaged(t *testing.T) {
	ctx := context.Background()
	st := testutil.StorageProviders()[0].Construct(t)
	l, lb := testutil.NewBufferedLogger(t, zapcore.WarnLevel)
	r := newReplica(t, st, WithLogger(l))

	// Blocks 1, 4 and 7.
	msgs := []message.Envelope{envelope(5, "a"), envelope(35, "b"), envelope(65, "c")}
	_, err := r.AddManyMsg(ctx, msgs)
	require.NoError(t, err)
	require.NoError(t, r.Flush(ctx))

	require.NoError(t, st.Del(storage.NewPath(timeline.Prefix, "blocks", "block-1")))

	other := timeline.NewBlock()
	_, err = other.Insert([]byte{1, 2, 3}, []byte("other"))
	require.NoError(t, err)
	require.NoError(t, storage.SetObject(st, storage.NewPath(timeline.Prefix, "blocks", "block-4"), other))

	list, err := r.GetMsgList(ctx, 0, Query{Order: datalist.Up})
	require.NoError(t, err)
	require.Equal(t, []Message[message.Envelope]{{ReceiptTime: 1002, Content: msgs[2]}}, list)

	e := lb.AssertMessage(zapcore.WarnLevel, "damaged message receipt skipped")
	require.Contains(t, e.Fields["error"], ErrNeedsReindex.Error())
	require.Equal(t, 2, lb.Count(zapcore.WarnLevel))
	lb.AssertContains(testutil.LogEntry{
		Level:   zapcore.WarnLevel,
		Message: "damaged message receipt skipped",
		Fields: map[string]any{
			"branch":    json.Number("4"),
			"signature": base58.Encode(message.EnvelopeHelper{}.Signature(msgs[1])),
			"error":     ErrNeedsResync.Error(),
		},
	})
}

var errEncode = errors.New("encode failed")

type flakyCodec struct {
	receiptCodec
	fail atomic.Bool
}

func (c *flakyCodec) Encode(r Receipt) ([]byte, error) {
	if c.fail.Load() {
		return nil, errEncode
	}
	return c.receiptCodec.Encode(r)
}

func TestReplica_ReceiptFailure(t *testing.T) {
	ctx := context.Background()

	codec := new(flakyCodec)
	codec.fail.Store(true)

	n := new(notifications)
	r := newReplica(t, testutil.StorageProviders()[0].Construct(t),
		WithNotifier(n), func(c *cfg) { c.codec = codec })

	msg := envelope(15, "hello")
	_, err := r.AddMsg(ctx, msg)
	require.ErrorIs(t, err, errEncode)
	require.Empty(t, n.list)

	ok, err := r.Tree().HasLeaf(ctx, msg)
	require.NoError(t, err)
	require.False(t, ok)

	codec.fail.Store(false)

	ok, err = r.AddMsg(ctx, msg)
	require.NoError(t, err)
	require.True(t, ok)

	list, err := r.GetMsgList(ctx, 0, Query{Order: datalist.Up})
	require.NoError(t, err)
	require.Equal(t, []Message[message.Envelope]{{ReceiptTime: 1000, Content: msg}}, list)
	require.Len(t, n.list, 1)
}

func TestReplica_Store(t *testing.T) {
	ctx := context.Background()
	a := newReplica(t, testutil.StorageProviders()[0].Construct(t))
	b := newReplica(t, testutil.StorageProviders()[0].Construct(t))

	shared, own := envelope(12, "shared"), envelope(17, "own")
	_, err := a.AddManyMsg(ctx, []message.Envelope{shared, own})
	require.NoError(t, err)
	_, err = b.AddMsg(ctx, shared)
	require.NoError(t, err)

	blk, err := a.Tree().GetBranchData(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 2, blk.Len())

	missing, err := b.MissingEntries(ctx, blk)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.Equal(t, message.EnvelopeHelper{}.Signature(own), missing[0].Signature)

	t.Run("signature mismatch", func(t *testing.T) {
		forged := missing[0]
		forged.Signature = append([]byte{}, forged.Signature...)
		forged.Signature[0] ^= 0xFF

		_, err := b.AddEntries(ctx, []timeline.Entry{forged})
		require.ErrorIs(t, err, ErrSignatureMismatch)
	})

	n, err := b.AddEntries(ctx, missing)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = b.AddEntries(ctx, missing)
	require.NoError(t, err)
	require.Zero(t, n)

	ra, err := a.GetBranchRoute(ctx, 100)
	require.NoError(t, err)
	rb, err := b.GetBranchRoute(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, ra, rb)
}
