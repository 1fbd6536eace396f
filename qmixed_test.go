package qmixed_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fumin/qmixed"
	"github.com/fumin/qmixed/ops"
)

// newTestCircuit builds
//
//	0: H(0)
//	1: CNOT(0, 1)
//	2: RZ(0.3, 0)
//	3: PhaseShift(0.5, 1)
//	4: CNOT(0, 1)
//	5: AmplitudeDamping(0.1, 0)
//
// whose dependency edges are 0->1, 1->2, 1->3, 2->4, 3->4, 4->5.
func newTestCircuit(t *testing.T) *qmixed.Circuit {
	t.Helper()
	c := qmixed.NewCircuit(2)
	for _, op := range []ops.Op{
		ops.Hadamard(0),
		ops.CNOT(0, 1),
		ops.RZ(0.3, 0),
		ops.PhaseShift(0.5, 1),
		ops.CNOT(0, 1),
		ops.AmplitudeDamping(0.1, 0),
	} {
		require.NoError(t, c.Append(op))
	}
	return c
}

func TestAncestors(t *testing.T) {
	t.Parallel()
	c := newTestCircuit(t)

	tests := []struct {
		op   int
		want []int
	}{
		{op: 0, want: []int{}},
		{op: 1, want: []int{0}},
		{op: 2, want: []int{0, 1}},
		{op: 3, want: []int{0, 1}},
		{op: 4, want: []int{0, 1, 2, 3}},
		{op: 5, want: []int{0, 1, 2, 3, 4}},
	}
	for _, test := range tests {
		got, err := c.Ancestors(test.op)
		require.NoError(t, err)
		require.Equal(t, test.want, got, "op %d", test.op)
	}
}

func TestSorted(t *testing.T) {
	t.Parallel()
	c := newTestCircuit(t)

	sorted, err := c.Sorted()
	require.NoError(t, err)
	require.Len(t, sorted, 6)

	pos := make(map[int]int, len(sorted))
	for i, op := range sorted {
		pos[op] = i
	}
	for _, edge := range [][2]int{{0, 1}, {1, 2}, {1, 3}, {2, 4}, {3, 4}, {4, 5}} {
		require.Less(t, pos[edge[0]], pos[edge[1]], "edge %v", edge)
	}
}

func TestParametrizedLayers(t *testing.T) {
	t.Parallel()
	c := newTestCircuit(t)

	// RZ(2) and PhaseShift(3) are mutually independent and share a layer.
	// AmplitudeDamping(5) depends on both and opens a new one.
	layers, err := c.ParametrizedLayers()
	require.NoError(t, err)
	require.Equal(t, []qmixed.Layer{
		{Ops: []int{2, 3}, ParamInds: []int{0, 1}},
		{Ops: []int{5}, ParamInds: []int{2}},
	}, layers)
}

func TestParametrizedLayersMultiParam(t *testing.T) {
	t.Parallel()
	c := qmixed.NewCircuit(2)
	require.NoError(t, c.Append(ops.GeneralizedAmplitudeDamping(0.2, 0.7, 0)))
	require.NoError(t, c.Append(ops.RZ(0.3, 1)))
	require.NoError(t, c.Append(ops.PhaseShift(0.5, 0)))

	// The two parameters of the damping channel keep it listed twice in its
	// layer. The trailing PhaseShift depends on the channel through wire 0.
	layers, err := c.ParametrizedLayers()
	require.NoError(t, err)
	require.Equal(t, []qmixed.Layer{
		{Ops: []int{0, 0, 1}, ParamInds: []int{0, 1, 2}},
		{Ops: []int{2}, ParamInds: []int{3}},
	}, layers)
}

func TestParametrizedLayersEmpty(t *testing.T) {
	t.Parallel()
	c := qmixed.NewCircuit(2)
	require.NoError(t, c.Append(ops.Hadamard(0)))
	require.NoError(t, c.Append(ops.CNOT(0, 1)))

	layers, err := c.ParametrizedLayers()
	require.NoError(t, err)
	require.Equal(t, []qmixed.Layer{{}}, layers)
}

func TestAppendError(t *testing.T) {
	t.Parallel()
	c := qmixed.NewCircuit(2)
	require.Error(t, c.Append(ops.Hadamard(2)))
	require.Error(t, c.Append(ops.Hadamard(-1)))
	require.Error(t, c.Append(ops.CNOT(1, 1)))
	require.NoError(t, c.Append(ops.CNOT(1, 0)))
	require.Len(t, c.Ops(), 1)
}
