// Package qmixed builds noisy quantum circuits and analyzes their operation
// dependency structure.
//
// A Circuit is an ordered list of operations over a fixed set of wires.
// Two operations depend on each other when they act on a common wire, with
// the earlier one feeding the later one. The dependencies form a directed
// acyclic graph whose vertices are operation indices, supporting ancestor
// queries, topological sorting, and parametrized layering.
package qmixed

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
	"github.com/pkg/errors"

	"github.com/fumin/qmixed/ops"
)

// Circuit is an append-only operation list with its dependency graph.
// graph points along execution order and reverse against it, so that
// ancestor queries are a forward search on reverse.
type Circuit struct {
	numWires int
	ops      []ops.Op

	graph   *core.Graph
	reverse *core.Graph
	// lastOnWire[w] is the index of the latest operation acting on wire w,
	// or -1 if none does yet.
	lastOnWire []int
}

// NewCircuit returns an empty circuit over numWires wires.
func NewCircuit(numWires int) *Circuit {
	c := &Circuit{
		numWires:   numWires,
		graph:      newDirectedGraph(),
		reverse:    newDirectedGraph(),
		lastOnWire: make([]int, numWires),
	}
	for i := range c.lastOnWire {
		c.lastOnWire[i] = -1
	}
	return c
}

// newDirectedGraph fails only on invalid option sets, which a fixed
// WithDirected(true) can never produce.
func newDirectedGraph() *core.Graph {
	g, err := core.NewGraph(core.WithDirected(true))
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return g
}

// Append adds op at the end of the circuit and records its dependencies on
// the previous operation of each of its wires.
func (c *Circuit) Append(op ops.Op) error {
	for i, wire := range op.Wires {
		if wire < 0 || wire >= c.numWires {
			return errors.Errorf("%s wire %d out of %d", op.Name, wire, c.numWires)
		}
		if slices.Contains(op.Wires[:i], wire) {
			return errors.Errorf("%s duplicate wire %d", op.Name, wire)
		}
	}

	idx := len(c.ops)
	id := strconv.Itoa(idx)
	if err := c.graph.AddVertex(id); err != nil {
		return errors.Wrap(err, "")
	}
	if err := c.reverse.AddVertex(id); err != nil {
		return errors.Wrap(err, "")
	}

	// Operations sharing several wires with the same predecessor still get
	// a single edge.
	seen := make(map[int]bool, len(op.Wires))
	for _, wire := range op.Wires {
		prev := c.lastOnWire[wire]
		c.lastOnWire[wire] = idx
		if prev < 0 || seen[prev] {
			continue
		}
		seen[prev] = true

		prevID := strconv.Itoa(prev)
		if _, err := c.graph.AddEdge(prevID, id, 0); err != nil {
			return errors.Wrap(err, "")
		}
		if _, err := c.reverse.AddEdge(id, prevID, 0); err != nil {
			return errors.Wrap(err, "")
		}
	}

	c.ops = append(c.ops, op)
	return nil
}

// NumWires returns the number of wires.
func (c *Circuit) NumWires() int { return c.numWires }

// Ops returns the operations in execution order.
// The returned slice is owned by the circuit and must not be modified.
func (c *Circuit) Ops() []ops.Op { return c.ops }

// Ancestors returns the indices of all operations that operation i depends
// on, directly or transitively, in ascending order. An operation is not its
// own ancestor.
func (c *Circuit) Ancestors(i int) ([]int, error) {
	res, err := bfs.BFS(c.reverse, strconv.Itoa(i))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	ancestors := make([]int, 0, len(res.Order)-1)
	for _, id := range res.Order[1:] {
		a, err := strconv.Atoi(id)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		ancestors = append(ancestors, a)
	}
	slices.Sort(ancestors)
	return ancestors, nil
}

// Sorted returns a topological order of the operation indices.
// Every order it returns respects all dependency edges; ties between
// independent operations are broken arbitrarily.
func (c *Circuit) Sorted() ([]int, error) {
	ids, err := dfs.TopologicalSort(c.graph)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	sorted := make([]int, 0, len(ids))
	for _, id := range ids {
		i, err := strconv.Atoi(id)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		sorted = append(sorted, i)
	}
	return sorted, nil
}

// Layer is a group of parametrized operations that may be executed
// simultaneously. Ops holds one entry per parameter, so an operation with
// several parameters appears several times; ParamInds are the positions of
// those parameters in the circuit-wide parameter sequence.
type Layer struct {
	Ops       []int
	ParamInds []int
}

// ParametrizedLayers groups the parametrized operations into layers in
// first-occurrence order. An operation starts a new layer exactly when one
// of the current layer's operations is among its ancestors.
//
// The grouping is not the greediest possible: an operation independent of
// the current layer but dependent on an earlier one still closes the
// current layer.
func (c *Circuit) ParametrizedLayers() ([]Layer, error) {
	layers := []Layer{{}}
	paramIdx := 0
	for i, op := range c.ops {
		for range op.Params {
			ancestors, err := c.Ancestors(i)
			if err != nil {
				return nil, errors.Wrap(err, "")
			}

			current := &layers[len(layers)-1]
			if intersects(current.Ops, ancestors) {
				layers = append(layers, Layer{})
				current = &layers[len(layers)-1]
			}

			current.Ops = append(current.Ops, i)
			current.ParamInds = append(current.ParamInds, paramIdx)
			paramIdx++
		}
	}
	return layers, nil
}

func intersects(a, b []int) bool {
	for _, v := range a {
		if slices.Contains(b, v) {
			return true
		}
	}
	return false
}
