package datastructure

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapExtractsInRankOrder(t *testing.T) {
	testCases := []struct {
		name  string
		d     int
		ranks []float64
	}{
		{name: "binary", d: 2, ranks: []float64{5, 3, 8, 1, 9, 2, 7}},
		{name: "four-ary", d: 4, ranks: []float64{10, 0.5, 3, 3.25, 100, 42, 7, 8, 1, 6, 2}},
		{name: "single", d: 4, ranks: []float64{1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewdAryHeap[int](tc.d)
			for i, r := range tc.ranks {
				h.Insert(r, i)
			}
			require.Equal(t, len(tc.ranks), h.Size())

			want := append([]float64(nil), tc.ranks...)
			sort.Float64s(want)

			got := make([]float64, 0, len(tc.ranks))
			for !h.IsEmpty() {
				node, err := h.ExtractMin()
				require.NoError(t, err)
				assert.Equal(t, tc.ranks[node.GetItem()], node.GetRank())
				got = append(got, node.GetRank())
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestMinHeapTiesAreFIFO(t *testing.T) {
	h := NewFourAryHeap[string]()
	h.Insert(1, "a")
	h.Insert(0, "first")
	h.Insert(1, "b")
	h.Insert(1, "c")

	order := []string{}
	for !h.IsEmpty() {
		node, err := h.ExtractMin()
		require.NoError(t, err)
		order = append(order, node.GetItem())
	}
	assert.Equal(t, []string{"first", "a", "b", "c"}, order)
}

func TestMinHeapEmpty(t *testing.T) {
	h := NewBinaryHeap[int]()
	_, err := h.ExtractMin()
	assert.ErrorIs(t, err, ErrEmptyHeap)
	_, err = h.GetMin()
	assert.ErrorIs(t, err, ErrEmptyHeap)

	h.Preallocate(16)
	h.Insert(2, 2)
	top, err := h.GetMin()
	require.NoError(t, err)
	assert.Equal(t, 2, top.GetItem())

	h.Clear()
	assert.True(t, h.IsEmpty())
}
