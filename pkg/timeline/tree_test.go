package timeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"slices"
	"testing"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/branch"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/util/logicerr"
	"github.com/stretchr/testify/require"
)

func TestTree_AddLeaf(t *testing.T) {
	for i := range providers {
		t.Run(providers[i].Name, func(t *testing.T) {
			testAddLeaf(t, treeConstructor(providers[i])(t))
		})
	}
}

func testAddLeaf(t *testing.T, tr *Tree[testLeaf]) {
	ctx := context.Background()
	leaf := newLeaf(15, "hello")

	res, err := tr.AddLeaf(ctx, leaf)
	require.NoError(t, err)
	require.Equal(t, AddResult{BranchID: 2, Added: true}, res)

	route, err := tr.GetBranchRoute(ctx, 15)
	require.NoError(t, err)

	res, err = tr.AddLeaf(ctx, leaf)
	require.NoError(t, err)
	require.Equal(t, AddResult{BranchID: 2}, res)

	same, err := tr.GetBranchRoute(ctx, 15)
	require.NoError(t, err)
	require.Equal(t, route, same)

	ok, err := tr.HasLeaf(ctx, leaf)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tr.HasLeaf(ctx, newLeaf(15, "absent"))
	require.NoError(t, err)
	require.False(t, ok)

	b, err := tr.GetBranchData(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, b)

	got, ok, err := tr.GetLeafFromBranchData(b, leaf.Sig)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, leaf, got)

	_, ok, err = tr.GetLeafFromBranchData(b, newLeaf(15, "absent").Sig)
	require.NoError(t, err)
	require.False(t, ok)

	b, err = tr.GetBranchData(ctx, 3)
	require.NoError(t, err)
	require.Nil(t, b)

	_, err = tr.AddLeaf(ctx, newLeaf(-1, "early"))
	require.ErrorIs(t, err, branch.ErrTimeOutOfRange)
}

func TestTree_Route(t *testing.T) {
	ctx := context.Background()
	tr := treeConstructor(providers[0])(t)

	// Branch 5 lays under (1, 2) which is under (2, 1).
	late := newLeaf(45, "late")
	_, err := tr.AddLeaf(ctx, late)
	require.NoError(t, err)

	route, err := tr.GetBranchRoute(ctx, 45)
	require.NoError(t, err)
	require.Len(t, route, 3)

	blockHash := func(id uint64) []byte {
		data, err := tr.GetBranchDataBytes(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, data)
		h := sha256.Sum256(data)
		return h[:]
	}

	h5 := blockHash(5)
	require.Equal(t, RouteNode{Level: 0, BranchID: 5, Hash: h5}, route[0])
	require.Equal(t, RouteNode{Level: 1, BranchID: 2, Hash: h5}, route[1])
	require.Equal(t, RouteNode{Level: 2, BranchID: 1, Hash: h5}, route[2])

	// Early leaf must be visible from the later root.
	early := newLeaf(5, "early")
	_, err = tr.AddLeaf(ctx, early)
	require.NoError(t, err)

	h1 := blockHash(1)
	route, err = tr.GetBranchRoute(ctx, 45)
	require.NoError(t, err)

	exp := sha256.Sum256(append(bytes.Clone(h1), h5...))
	require.Equal(t, exp[:], route[2].Hash)

	children, err := tr.GetBranchChildren(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []Child{{BranchID: 1, Hash: h1}, {BranchID: 2, Hash: h5}}, children)

	children, err = tr.GetBranchChildren(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, []Child{{BranchID: 5, Hash: h5}}, children)

	route, err = tr.GetBranchRoute(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, Route{{Level: 0, BranchID: 1, Hash: h1}}, route)

	h, err := tr.GetBranchHash(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, h1, h)

	h, err = tr.GetBranchHash(ctx, 3, 1)
	require.NoError(t, err)
	require.Empty(t, h)

	_, err = tr.GetBranchChildren(ctx, 1, 0)
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestTree_LowerRoots(t *testing.T) {
	ctx := context.Background()
	tr := treeConstructor(providers[0])(t)

	_, err := tr.AddLeaf(ctx, newLeaf(5, "early"))
	require.NoError(t, err)

	data, err := tr.GetBranchDataBytes(ctx, 1)
	require.NoError(t, err)
	h1 := sha256.Sum256(data)

	// Route of the later time ends at (3, 1) which does not exist yet.
	route, err := tr.GetBranchRoute(ctx, 200)
	require.NoError(t, err)
	require.Len(t, route, 4)
	require.Equal(t, h1[:], route[3].Hash)
	require.Empty(t, route[2].Hash)

	children, err := tr.GetBranchChildren(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, []Child{{BranchID: 1, Hash: h1[:]}}, children)

	// Branch 14 lays under (1, 4), (2, 2) and (3, 1).
	_, err = tr.AddLeaf(ctx, newLeaf(133, "late"))
	require.NoError(t, err)

	data, err = tr.GetBranchDataBytes(ctx, 14)
	require.NoError(t, err)
	h14 := sha256.Sum256(data)

	children, err = tr.GetBranchChildren(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, []Child{{BranchID: 1, Hash: h1[:]}, {BranchID: 2, Hash: h14[:]}}, children)

	route, err = tr.GetBranchRoute(ctx, 200)
	require.NoError(t, err)
	exp := sha256.Sum256(append(bytes.Clone(h1[:]), h14[:]...))
	require.Equal(t, exp[:], route[3].Hash)

	// Early branch stays reachable after more leaves under (2, 1).
	_, err = tr.AddLeaf(ctx, newLeaf(45, "middle"))
	require.NoError(t, err)

	children, err = tr.GetBranchChildren(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, children, 2)
}

func TestTree_LevelBounds(t *testing.T) {
	ctx := context.Background()
	tr := treeConstructor(providers[0])(t)

	leaf := newLeaf(5, "only")
	_, err := tr.AddLeaf(ctx, leaf)
	require.NoError(t, err)

	data, err := tr.GetBranchDataBytes(ctx, 1)
	require.NoError(t, err)
	h1 := sha256.Sum256(data)

	// All the roots above (1, 1) are missing.
	children, err := tr.GetBranchChildren(ctx, 1, 20)
	require.NoError(t, err)
	require.Equal(t, []Child{{BranchID: 1, Hash: h1[:]}}, children)

	h, err := tr.GetBranchHash(ctx, 1, 20)
	require.NoError(t, err)
	require.Equal(t, h1[:], h)

	_, err = tr.GetBranchChildren(ctx, 1, 1<<26)
	require.ErrorIs(t, err, ErrInvalidLevel)

	_, err = tr.GetBranchHash(ctx, 1, 1<<26)
	require.ErrorIs(t, err, ErrInvalidLevel)

	_, err = tr.GetBranchHash(ctx, 1, -1)
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestTree_AddManyLeafFunc(t *testing.T) {
	ctx := context.Background()
	tr := treeConstructor(providers[0])(t)

	leaves := []testLeaf{newLeaf(5, "a"), newLeaf(45, "b")}
	errHook := errors.New("hook failed")

	var seen []AddResult
	_, err := tr.AddManyLeafFunc(ctx, leaves, func(res []AddResult) error {
		seen = slices.Clone(res)
		return errHook
	})
	require.ErrorIs(t, err, errHook)
	require.Equal(t, []AddResult{{BranchID: 1, Added: true}, {BranchID: 5, Added: true}}, seen)

	has, err := tr.HasManyLeaf(ctx, leaves)
	require.NoError(t, err)
	require.Equal(t, []bool{false, false}, has)

	route, err := tr.GetBranchRoute(ctx, 45)
	require.NoError(t, err)
	for i := range route {
		require.Empty(t, route[i].Hash)
	}

	res, err := tr.AddManyLeafFunc(ctx, leaves, func([]AddResult) error { return nil })
	require.NoError(t, err)
	require.Equal(t, []AddResult{{BranchID: 1, Added: true}, {BranchID: 5, Added: true}}, res)
}

func TestTree_Determinism(t *testing.T) {
	ctx := context.Background()

	var leaves []testLeaf
	for i, body := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		leaves = append(leaves, newLeaf(int64(i*7), body))
	}

	for i := range providers {
		t.Run(providers[i].Name, func(t *testing.T) {
			construct := treeConstructor(providers[i])
			direct, reversed := construct(t), construct(t)

			for j := range leaves {
				_, err := direct.AddLeaf(ctx, leaves[j])
				require.NoError(t, err)

				// Interleave hash reads to have partially clean trees.
				if j%3 == 0 {
					_, err = direct.GetBranchRoute(ctx, 50)
					require.NoError(t, err)
				}
			}

			rev := make([]testLeaf, len(leaves))
			for j := range leaves {
				rev[j] = leaves[len(leaves)-1-j]
			}
			res, err := reversed.AddManyLeaf(ctx, rev)
			require.NoError(t, err)
			for j := range res {
				require.True(t, res[j].Added)
			}

			for _, tm := range []int64{0, 10, 25, 49, 50, 200} {
				r1, err := direct.GetBranchRoute(ctx, tm)
				require.NoError(t, err)
				r2, err := reversed.GetBranchRoute(ctx, tm)
				require.NoError(t, err)
				require.Equal(t, r1, r2, tm)
			}

			r, err := direct.GetBranchRoute(ctx, 49)
			require.NoError(t, err)
			require.NotEmpty(t, r[len(r)-1].Hash)
		})
	}
}

func TestTree_CollisionEscalation(t *testing.T) {
	ctx := context.Background()
	tr := treeConstructor(providers[0])(t)

	a := testLeaf{Sig: append([]byte{0xAA, 0x01}, bytes.Repeat([]byte{1}, 30)...), Time: 1, Body: "a"}
	c := testLeaf{Sig: append([]byte{0xAA, 0x02}, bytes.Repeat([]byte{2}, 30)...), Time: 2, Body: "c"}

	res, err := tr.AddManyLeaf(ctx, []testLeaf{a, c})
	require.NoError(t, err)
	require.Equal(t, []AddResult{{BranchID: 1, Added: true}, {BranchID: 1, Added: true}}, res)

	b, err := tr.GetBranchData(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 16, b.IndexedDigit())

	for _, l := range []testLeaf{a, c} {
		got, ok, err := tr.GetLeafFromBranchData(b, l.Sig)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, l, got)
	}

	leaves, err := tr.Leaves(b)
	require.NoError(t, err)
	require.Equal(t, []testLeaf{a, c}, leaves)

	e := testLeaf{Sig: append(bytes.Clone(a.Sig), 2), Time: 4}
	_, err = tr.AddLeaf(ctx, e)
	require.ErrorIs(t, err, ErrSignatureSpaceExhausted)
	require.True(t, logicerr.Is(err))

	// Failed insertion leaves the tree untouched.
	ok, err := tr.HasLeaf(ctx, e)
	require.NoError(t, err)
	require.False(t, ok)
}
