package replica

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/branch"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/datalist"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"go.uber.org/zap"
)

var (
	// ErrNeedsReindex is reported when the log refers to a missing block.
	ErrNeedsReindex = errors.New("block is missing, log needs reindexing")
	// ErrNeedsResync is reported when the log refers to a missing message.
	ErrNeedsResync = errors.New("message is missing, data needs synchronization")
	// ErrSignatureMismatch is returned when pulled message does not match
	// its signature.
	ErrSignatureMismatch = errors.New("message does not match signature")
)

// DefaultLimit is the default number of messages returned by GetMsgList.
const DefaultLimit = 40

// Replica is a local copy of the message timeline. Messages are indexed
// by the hash tree and receipts are recorded in the append-only log.
type Replica[D any] struct {
	cfg

	helper message.Helper[D]
	tree   *timeline.Tree[D]
	list   *datalist.Log[Receipt]
}

// Message is a stored message with its receipt time.
type Message[D any] struct {
	ReceiptTime int64
	Content     D
}

// Query specifies messages returned by GetMsgList.
type Query struct {
	// Offset is the number of receipts to skip.
	Offset int
	// Limit is the maximum number of receipts to read, DefaultLimit if zero.
	Limit int
	// Order is a listing direction, datalist.Down if zero.
	Order datalist.Order
}

// New opens replica stored in st.
func New[D any](st *storage.Storage, bc branch.Config, h message.Helper[D], opts ...Option) (*Replica[D], error) {
	c := defaultCfg()
	for i := range opts {
		opts[i](&c)
	}

	tree, err := timeline.New(st, bc, h, append([]timeline.Option{timeline.WithLogger(c.log)}, c.treeOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("open timeline: %w", err)
	}

	list, err := datalist.Open[Receipt](st, bc, c.codec, append([]datalist.Option{datalist.WithLogger(c.log)}, c.listOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("open data list: %w", err)
	}

	return &Replica[D]{
		cfg:    c,
		helper: h,
		tree:   tree,
		list:   list,
	}, nil
}

// Tree returns underlying hash tree.
func (r *Replica[D]) Tree() *timeline.Tree[D] {
	return r.tree
}

// AddMsg stores the message. False is returned if it is already stored.
func (r *Replica[D]) AddMsg(ctx context.Context, msg D) (bool, error) {
	res, err := r.AddManyMsg(ctx, []D{msg})
	if err != nil {
		return false, err
	}
	return res[0], nil
}

// AddManyMsg is AddMsg for multiple messages. All the new messages get
// receipts of the same batch. Receipts are appended before the messages are
// committed to the tree, so failed append leaves no message without receipt.
func (r *Replica[D]) AddManyMsg(ctx context.Context, msgs []D) ([]bool, error) {
	var (
		res      = make([]bool, len(msgs))
		receipts []Receipt
		times    []int64
	)

	_, err := r.tree.AddManyLeafFunc(ctx, msgs, func(added []timeline.AddResult) error {
		receipts = make([]Receipt, 0, len(added))
		for i := range added {
			res[i] = added[i].Added
			if !added[i].Added {
				continue
			}
			receipts = append(receipts, Receipt{
				Signature: r.helper.Signature(msgs[i]),
				BranchID:  added[i].BranchID,
			})
		}

		if len(receipts) == 0 {
			return nil
		}

		var err error
		if times, err = r.list.AddManyItem(receipts, r.clock()); err != nil {
			return fmt.Errorf("add receipts: %w", err)
		}
		return nil
	})
	if err != nil {
		if len(times) != 0 {
			sigs := make([]string, len(receipts))
			for i := range receipts {
				sigs[i] = base58.Encode(receipts[i].Signature)
			}
			r.log.Error("receipts refer to the messages that were not stored",
				zap.Strings("signatures", sigs),
				zap.Error(err))
		}
		return nil, err
	}

	if len(receipts) == 0 {
		return res, nil
	}

	r.metrics.AddAcceptedMessages(len(receipts))
	r.notify(ctx, receipts, times)

	return res, nil
}

func (r *Replica[D]) notify(ctx context.Context, receipts []Receipt, times []int64) {
	if r.notifier == nil {
		return
	}

	for i := range receipts {
		err := r.notifier.Notify(ctx, Notification{ReceiptTime: times[i], Receipt: receipts[i]})
		if err != nil {
			r.log.Warn("can't notify about accepted message",
				zap.String("signature", base58.Encode(receipts[i].Signature)),
				zap.Error(err))
		}
	}
}

// GetMsgList lists stored messages starting from ts. Receipts referring to
// damaged data are logged and skipped.
func (r *Replica[D]) GetMsgList(ctx context.Context, ts int64, q Query) ([]Message[D], error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Order == 0 {
		q.Order = datalist.Down
	}

	var (
		reader   = r.list.ItemReader(ts, q.Order)
		receipts = make([]datalist.Item[Receipt], 0, q.Limit)
		skipped  int
	)

	for len(receipts) < q.Limit {
		it, err := reader.Next(ctx)
		if errors.Is(err, datalist.ErrEndOfListing) {
			break
		}
		if err != nil {
			return nil, err
		}

		if skipped < q.Offset {
			skipped++
			continue
		}
		receipts = append(receipts, it)
	}

	blocks := make(map[uint64]*timeline.Block)
	res := make([]Message[D], 0, len(receipts))

	for i := range receipts {
		rc := receipts[i].Data

		b, ok := blocks[rc.BranchID]
		if !ok {
			var err error
			if b, err = r.tree.GetBranchData(ctx, rc.BranchID); err != nil {
				return nil, err
			}
			blocks[rc.BranchID] = b
		}

		if b == nil {
			r.damaged(ErrNeedsReindex, rc)
			continue
		}

		msg, ok, err := r.tree.GetLeafFromBranchData(b, rc.Signature)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.damaged(ErrNeedsResync, rc)
			continue
		}

		res = append(res, Message[D]{ReceiptTime: receipts[i].InsertTime, Content: msg})
	}
	return res, nil
}

func (r *Replica[D]) damaged(err error, rc Receipt) {
	r.metrics.AddDamagedEntries(1)
	r.log.Warn("damaged message receipt skipped",
		zap.Uint64("branch", rc.BranchID),
		zap.String("signature", base58.Encode(rc.Signature)),
		zap.Error(err))
}

// GetBranchRoute implements treesync.Store.
func (r *Replica[D]) GetBranchRoute(ctx context.Context, t int64) (timeline.Route, error) {
	return r.tree.GetBranchRoute(ctx, t)
}

// GetBranchChildren implements treesync.Store.
func (r *Replica[D]) GetBranchChildren(ctx context.Context, id uint64, level int) ([]timeline.Child, error) {
	return r.tree.GetBranchChildren(ctx, id, level)
}

// GetBranchDataBytes implements treesync.Store.
func (r *Replica[D]) GetBranchDataBytes(ctx context.Context, id uint64) ([]byte, error) {
	return r.tree.GetBranchDataBytes(ctx, id)
}

// MissingEntries implements treesync.Store.
func (r *Replica[D]) MissingEntries(ctx context.Context, b *timeline.Block) ([]timeline.Entry, error) {
	entries := b.Entries()
	msgs := make([]D, len(entries))
	for i := range entries {
		var err error
		if msgs[i], err = r.decodeEntry(entries[i]); err != nil {
			return nil, err
		}
	}

	has, err := r.tree.HasManyLeaf(ctx, msgs)
	if err != nil {
		return nil, err
	}

	var res []timeline.Entry
	for i := range has {
		if !has[i] {
			res = append(res, entries[i])
		}
	}
	return res, nil
}

// AddEntries implements treesync.Store. Entries are stored through the
// same path as AddManyMsg.
func (r *Replica[D]) AddEntries(ctx context.Context, entries []timeline.Entry) (int, error) {
	msgs := make([]D, len(entries))
	for i := range entries {
		var err error
		if msgs[i], err = r.decodeEntry(entries[i]); err != nil {
			return 0, err
		}
	}

	res, err := r.AddManyMsg(ctx, msgs)
	if err != nil {
		return 0, err
	}

	var n int
	for i := range res {
		if res[i] {
			n++
		}
	}
	return n, nil
}

func (r *Replica[D]) decodeEntry(e timeline.Entry) (D, error) {
	msg, err := r.helper.Unmarshal(e.Data)
	if err != nil {
		return msg, fmt.Errorf("decode message %s: %w", base58.Encode(e.Signature), err)
	}
	if !bytes.Equal(r.helper.Signature(msg), e.Signature) {
		return msg, fmt.Errorf("%w: %s", ErrSignatureMismatch, base58.Encode(e.Signature))
	}
	return msg, nil
}

// Flush writes pending log data to the storage.
func (r *Replica[D]) Flush(ctx context.Context) error {
	return r.list.Flush(ctx)
}

// Close flushes and closes the replica. Storage is not closed.
func (r *Replica[D]) Close() error {
	return r.list.Close()
}
