package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/branch"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/digest"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"go.uber.org/zap"
)

// Prefix is a storage prefix of all the tree data.
const Prefix = "timeline"

// ErrInvalidLevel is returned when level does not fit the operation.
var ErrInvalidLevel = errors.New("invalid branch level")

// Tree is a time-bucketed hash tree over signed leaves.
type Tree[D any] struct {
	cfg    branch.Config
	helper message.Helper[D]
	st     *storage.Storage
	log    *zap.Logger

	// maxLevel is the highest level a branch of the tree can have.
	maxLevel int
}

// Option is an option for Tree constructor.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger returns option to specify logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// RouteNode is a single step of the branch route.
type RouteNode struct {
	Level    int
	BranchID uint64
	Hash     []byte
}

// Route is a sequence of branch hashes from level 0 up to the root.
type Route []RouteNode

// Child is a non-empty child branch hash.
type Child struct {
	BranchID uint64
	Hash     []byte
}

// AddResult describes leaf insertion.
type AddResult struct {
	// BranchID is level-0 branch of the leaf.
	BranchID uint64
	// Added is false if leaf has been already stored.
	Added bool
}

// New returns new Tree stored in st.
func New[D any](st *storage.Storage, cfg branch.Config, h message.Helper[D], opts ...Option) (*Tree[D], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{log: zap.NewNop()}
	for i := range opts {
		opts[i](&o)
	}

	return &Tree[D]{
		cfg:    cfg,
		helper: h,
		st:     st,
		log:    o.log,

		maxLevel: cfg.Height(math.MaxUint64) + 1,
	}, nil
}

// Config returns branch addressing configuration of the tree.
func (t *Tree[D]) Config() branch.Config {
	return t.cfg
}

func (t *Tree[D]) update(ctx context.Context, f func(storage.ReadWriter) error) error {
	return t.st.Update(ctx, storage.NewPath(Prefix), f)
}

func blockPath(id uint64) storage.Path {
	return storage.NewPath(Prefix, "blocks", "block-"+strconv.FormatUint(id, 10))
}

func hashPath(level int, id uint64) storage.Path {
	return storage.NewPath(Prefix, "tree-hash",
		"level-"+strconv.Itoa(level),
		"branch-"+strconv.FormatUint(id, 10))
}

// AddLeaf stores the leaf in its level-0 branch and marks all the ancestor
// hashes dirty. Added is false if leaf with the same signature exists.
func (t *Tree[D]) AddLeaf(ctx context.Context, leaf D) (AddResult, error) {
	var res AddResult
	err := t.update(ctx, func(rw storage.ReadWriter) error {
		var err error
		res, err = t.addLeaf(rw, leaf)
		return err
	})
	return res, err
}

// AddManyLeaf is AddLeaf for multiple leaves in a single transaction.
func (t *Tree[D]) AddManyLeaf(ctx context.Context, leaves []D) ([]AddResult, error) {
	return t.AddManyLeafFunc(ctx, leaves, nil)
}

// AddManyLeafFunc is AddManyLeaf which calls f with the results before the
// transaction is committed. Error from f aborts the transaction, so none of
// the leaves are stored.
func (t *Tree[D]) AddManyLeafFunc(ctx context.Context, leaves []D, f func([]AddResult) error) ([]AddResult, error) {
	res := make([]AddResult, len(leaves))
	err := t.update(ctx, func(rw storage.ReadWriter) error {
		for i := range leaves {
			var err error
			if res[i], err = t.addLeaf(rw, leaves[i]); err != nil {
				return err
			}
		}
		if f != nil {
			return f(res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (t *Tree[D]) addLeaf(rw storage.ReadWriter, leaf D) (AddResult, error) {
	id, err := t.cfg.ID(t.helper.CreateTime(leaf))
	if err != nil {
		return AddResult{}, err
	}

	b, err := t.getBlock(rw, id)
	if err != nil {
		return AddResult{}, err
	}
	if b == nil {
		b = NewBlock()
	}

	data, err := t.helper.Marshal(leaf)
	if err != nil {
		return AddResult{}, fmt.Errorf("marshal leaf: %w", err)
	}

	ok, err := b.Insert(t.helper.Signature(leaf), data)
	if err != nil || !ok {
		return AddResult{BranchID: id}, err
	}

	if err := t.markDirty(rw, id); err != nil {
		return AddResult{}, err
	}
	if err := storage.SetObject(rw, blockPath(id), b); err != nil {
		return AddResult{}, err
	}

	t.log.Debug("leaf added",
		zap.Uint64("branch", id),
		zap.Int("digit", b.IndexedDigit()))

	return AddResult{BranchID: id, Added: true}, nil
}

// markDirty walks from the level-0 branch up to the root marking every
// ancestor hash dirty. A root at level L is a child of the root at level
// L+1, so the walk continues through the higher roots if there are any.
func (t *Tree[D]) markDirty(rw storage.ReadWriter, id uint64) error {
	child := id
	for level := 1; ; level++ {
		parent := t.cfg.Parent(child)

		cont, err := t.markNode(rw, level, parent, child)
		if err != nil || !cont {
			return err
		}

		if branch.IsRoot(parent) {
			upper, err := t.upperRoot(rw, level)
			if err != nil || upper == 0 {
				return err
			}

			for l := level + 1; l < upper; l++ {
				info := newHashInfo()
				info.markDirty(branch.RootID)
				if err := storage.SetObject(rw, hashPath(l, branch.RootID), info); err != nil {
					return err
				}
			}
			level = upper - 1
		}
		child = parent
	}
}

// upperRoot returns the lowest level above the given one having the root,
// zero if there is none.
func (t *Tree[D]) upperRoot(rw storage.ReadWriter, level int) (int, error) {
	names, err := rw.ListChildren(storage.NewPath(Prefix, "tree-hash"))
	if err != nil {
		return 0, err
	}

	levels := make([]int, 0, len(names))
	for _, name := range names {
		l, err := strconv.Atoi(strings.TrimPrefix(name, "level-"))
		if err == nil && l > level {
			levels = append(levels, l)
		}
	}
	slices.Sort(levels)

	for _, l := range levels {
		ok, err := rw.Has(hashPath(l, branch.RootID))
		if err != nil {
			return 0, err
		}
		if ok {
			return l, nil
		}
	}
	return 0, nil
}

// markNode registers dirty child in the node. It returns false if the
// child has been already registered, then the ancestors are dirty too.
func (t *Tree[D]) markNode(rw storage.ReadWriter, level int, id, child uint64) (bool, error) {
	p := hashPath(level, id)

	info, err := t.getHashInfo(rw, level, id)
	if err != nil {
		return false, err
	}
	if info == nil {
		info = newHashInfo()
		if level >= 2 && branch.IsRoot(id) && child != branch.RootID {
			linked, err := t.linkLowerRoots(rw, level)
			if err != nil {
				return false, err
			}
			if linked {
				info.markDirty(branch.RootID)
			}
		}
	}

	if !info.markDirty(child) {
		return false, nil
	}
	return true, storage.SetObject(rw, p, info)
}

// linkLowerRoots connects the highest existing root below the level with
// the new root at the level creating the missing roots in between. It
// returns false if there are no roots below.
func (t *Tree[D]) linkLowerRoots(rw storage.ReadWriter, level int) (bool, error) {
	lower := level - 1
	for ; lower >= 1; lower-- {
		ok, err := rw.Has(hashPath(lower, branch.RootID))
		if err != nil {
			return false, err
		}
		if ok {
			break
		}
	}
	if lower < 1 {
		return false, nil
	}

	for l := lower + 1; l < level; l++ {
		info := newHashInfo()
		info.markDirty(branch.RootID)
		if err := storage.SetObject(rw, hashPath(l, branch.RootID), info); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (t *Tree[D]) getBlock(r storage.Reader, id uint64) (*Block, error) {
	b := new(Block)
	err := storage.GetObject(r, blockPath(id), b)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", id, err)
	}
	return b, nil
}

func (t *Tree[D]) getHashInfo(r storage.Reader, level int, id uint64) (*hashInfo, error) {
	info := new(hashInfo)
	err := storage.GetObject(r, hashPath(level, id), info)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hash info %d/%d: %w", level, id, err)
	}
	return info, nil
}

func (t *Tree[D]) blockHash(r storage.Reader, id uint64) ([]byte, error) {
	data, err := r.GetBinary(blockPath(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return digest.Sum(data), nil
}

// GetBranchHash returns hash of the branch recomputing dirty parts.
// Empty result means there are no leaves under the branch.
func (t *Tree[D]) GetBranchHash(ctx context.Context, id uint64, level int) ([]byte, error) {
	var res []byte
	err := t.update(ctx, func(rw storage.ReadWriter) error {
		var err error
		res, err = t.branchHash(rw, id, level)
		return err
	})
	return res, err
}

func (t *Tree[D]) branchHash(rw storage.ReadWriter, id uint64, level int) ([]byte, error) {
	if level < 0 || level > t.maxLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	if level == 0 {
		return t.blockContribution(rw, id)
	}

	info, err := t.getHashInfo(rw, level, id)
	if err != nil {
		return nil, err
	}
	// Missing root has the only child: the root below.
	for info == nil && level >= 2 && branch.IsRoot(id) {
		level--
		if info, err = t.getHashInfo(rw, level, id); err != nil {
			return nil, err
		}
	}
	if info == nil {
		return nil, nil
	}
	if !info.dirty {
		return info.hash, nil
	}

	for _, child := range info.dirtyChildren() {
		var h []byte
		if level == 1 {
			h, err = t.blockHash(rw, child)
		} else {
			h, err = t.branchHash(rw, child, level-1)
		}
		if err != nil {
			return nil, err
		}
		info.setSubHash(child, h)
	}

	info.aggregate()

	if err := storage.SetObject(rw, hashPath(level, id), info); err != nil {
		return nil, err
	}
	return info.hash, nil
}

// blockContribution returns level-0 branch hash cached in its parent.
func (t *Tree[D]) blockContribution(rw storage.ReadWriter, id uint64) ([]byte, error) {
	parent := t.cfg.Parent(id)

	info, err := t.getHashInfo(rw, 1, parent)
	if err != nil || info == nil {
		return nil, err
	}

	if _, ok := info.subDirty[id]; !ok {
		return info.subHash[id], nil
	}

	h, err := t.blockHash(rw, id)
	if err != nil {
		return nil, err
	}

	info.setSubHash(id, h)
	if err := storage.SetObject(rw, hashPath(1, parent), info); err != nil {
		return nil, err
	}
	return h, nil
}

// GetBranchRoute returns hashes of all the branches from level-0 branch
// of the given time up to the root.
func (t *Tree[D]) GetBranchRoute(ctx context.Context, tm int64) (Route, error) {
	id, err := t.cfg.ID(tm)
	if err != nil {
		return nil, err
	}

	var res Route
	err = t.update(ctx, func(rw storage.ReadWriter) error {
		res = res[:0]
		for level := 0; ; level++ {
			h, err := t.branchHash(rw, id, level)
			if err != nil {
				return err
			}
			res = append(res, RouteNode{Level: level, BranchID: id, Hash: h})

			if branch.IsRoot(id) {
				return nil
			}
			id = t.cfg.Parent(id)
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetBranchChildren returns non-empty hashes of the direct children of the
// branch ordered by id. Level must be positive.
func (t *Tree[D]) GetBranchChildren(ctx context.Context, id uint64, level int) ([]Child, error) {
	if level < 1 || level > t.maxLevel {
		return nil, fmt.Errorf("%w: %d for branch %d", ErrInvalidLevel, level, id)
	}

	var res []Child
	err := t.update(ctx, func(rw storage.ReadWriter) error {
		if _, err := t.branchHash(rw, id, level); err != nil {
			return err
		}

		info, err := t.getHashInfo(rw, level, id)
		if err != nil {
			return err
		}
		if info == nil {
			if level >= 2 && branch.IsRoot(id) {
				h, err := t.branchHash(rw, branch.RootID, level-1)
				if err != nil || len(h) == 0 {
					return err
				}
				res = []Child{{BranchID: branch.RootID, Hash: h}}
			}
			return nil
		}

		res = make([]Child, 0, len(info.subHash))
		for _, child := range sortedIDs(keysOf(info.subHash)) {
			res = append(res, Child{BranchID: child, Hash: info.subHash[child]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetBranchData returns level-0 branch block or nil if there is none.
func (t *Tree[D]) GetBranchData(ctx context.Context, id uint64) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.getBlock(t.st, id)
}

// GetBranchDataBytes returns binary level-0 branch block or nil if there
// is none.
func (t *Tree[D]) GetBranchDataBytes(ctx context.Context, id uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := t.st.GetBinary(blockPath(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// GetLeafFromBranchData looks for the leaf with the given signature in the
// block. The second result is false if there is no such leaf.
func (t *Tree[D]) GetLeafFromBranchData(b *Block, sig []byte) (D, bool, error) {
	var zero D

	e, ok := b.Get(sig)
	if !ok {
		return zero, false, nil
	}

	leaf, err := t.helper.Unmarshal(e.Data)
	if err != nil {
		return zero, false, fmt.Errorf("unmarshal leaf: %w", err)
	}
	return leaf, true, nil
}

// Leaves decodes all the leaves of the block.
func (t *Tree[D]) Leaves(b *Block) ([]D, error) {
	entries := b.Entries()
	res := make([]D, 0, len(entries))
	for i := range entries {
		leaf, err := t.helper.Unmarshal(entries[i].Data)
		if err != nil {
			return nil, fmt.Errorf("unmarshal leaf: %w", err)
		}
		res = append(res, leaf)
	}
	return res, nil
}

// HasLeaf checks whether the leaf is stored in the tree.
func (t *Tree[D]) HasLeaf(ctx context.Context, leaf D) (bool, error) {
	res, err := t.HasManyLeaf(ctx, []D{leaf})
	if err != nil {
		return false, err
	}
	return res[0], nil
}

// HasManyLeaf is HasLeaf for multiple leaves. Each block is read once.
func (t *Tree[D]) HasManyLeaf(ctx context.Context, leaves []D) ([]bool, error) {
	blocks := make(map[uint64]*Block)
	res := make([]bool, len(leaves))

	for i := range leaves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id, err := t.cfg.ID(t.helper.CreateTime(leaves[i]))
		if err != nil {
			return nil, err
		}

		b, ok := blocks[id]
		if !ok {
			if b, err = t.getBlock(t.st, id); err != nil {
				return nil, err
			}
			blocks[id] = b
		}

		res[i] = b != nil && b.Has(t.helper.Signature(leaves[i]))
	}
	return res, nil
}

func keysOf[V any](m map[uint64]V) map[uint64]struct{} {
	res := make(map[uint64]struct{}, len(m))
	for k := range m {
		res[k] = struct{}{}
	}
	return res
}
