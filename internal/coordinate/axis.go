// Package coordinate expands sets and filters into coordinate tuples,
// partitions each variable's coordinates into rows/cols/intra/inter, and
// builds the scenario table.
package coordinate

import "fmt"

// Combo is one combination produced by an AxisGenerator: one label drawn
// from each axis, in axis order.
type Combo struct {
	Labels []string
}

// AxisGenerator lazily enumerates the Cartesian product of a stack of
// label axes, incrementing like a mixed-radix counter.
type AxisGenerator interface {
	Next() (Combo, bool)
	Err() error
}

type mixedRadixGenerator struct {
	axes    [][]string
	indexes []int
	started bool
	done    bool
	err     error
}

// NewAxisGenerator builds a lazy generator over axes (each a set's ordered,
// already-filtered item list). maxDepth guards against runaway coordinate
// stacks; 0 uses a sane default of 64.
func NewAxisGenerator(axes [][]string, maxDepth int) (AxisGenerator, error) {
	if len(axes) == 0 {
		return &emptyAxisGenerator{}, nil
	}
	if maxDepth <= 0 {
		maxDepth = 64
	}
	if len(axes) > maxDepth {
		return nil, fmt.Errorf("coordinate stack depth %d exceeds max %d", len(axes), maxDepth)
	}
	for _, axis := range axes {
		if len(axis) == 0 {
			return &emptyAxisGenerator{}, nil
		}
	}
	return &mixedRadixGenerator{
		axes:    axes,
		indexes: make([]int, len(axes)),
	}, nil
}

func (g *mixedRadixGenerator) Next() (Combo, bool) {
	if g.done || g.err != nil {
		return Combo{}, false
	}
	if !g.started {
		g.started = true
		return g.current(), true
	}
	for level := len(g.indexes) - 1; level >= 0; level-- {
		g.indexes[level]++
		if g.indexes[level] < len(g.axes[level]) {
			for j := level + 1; j < len(g.indexes); j++ {
				g.indexes[j] = 0
			}
			return g.current(), true
		}
	}
	g.done = true
	return Combo{}, false
}

func (g *mixedRadixGenerator) current() Combo {
	labels := make([]string, len(g.axes))
	for axisIdx, itemIdx := range g.indexes {
		labels[axisIdx] = g.axes[axisIdx][itemIdx]
	}
	return Combo{Labels: labels}
}

func (g *mixedRadixGenerator) Err() error { return g.err }

type emptyAxisGenerator struct{}

func (e *emptyAxisGenerator) Next() (Combo, bool) { return Combo{}, false }
func (e *emptyAxisGenerator) Err() error          { return nil }

// MaterializeCombos drains an AxisGenerator eagerly; used when the caller
// needs random access into the full combination list (coordinates
// dataframes, scenario tables), as opposed to streaming.
func MaterializeCombos(axes [][]string, maxDepth int) ([]Combo, error) {
	gen, err := NewAxisGenerator(axes, maxDepth)
	if err != nil {
		return nil, err
	}
	var out []Combo
	for {
		c, ok := gen.Next()
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out, gen.Err()
}
