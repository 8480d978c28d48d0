// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import "math"

// The functions in this file give read-only access to the structure of a
// diagram without creating Nodes, which is much faster when walking large
// diagrams, for instance to build an explicit matrix. Edges must come from a
// live Node (see method Edge) and are only valid until the next operation
// that can create nodes.

// EdgeLevel returns the level of the root variable of e, or math.MaxInt32 if
// e is a leaf.
func (b *Manager) EdgeLevel(e Edge) int {
	if b.isleaf(e) {
		return math.MaxInt32
	}
	return int(b.level(e))
}

// EdgeIsLeaf returns true if e is a constant.
func (b *Manager) EdgeIsLeaf(e Edge) bool {
	return b.isleaf(e)
}

// EdgeLow returns the false branch of e.
func (b *Manager) EdgeLow(e Edge) Edge {
	return b.low(e)
}

// EdgeHigh returns the true branch of e.
func (b *Manager) EdgeHigh(e Edge) Edge {
	return b.high(e)
}

// EdgeCofactors returns the two cofactors of e for the variable at the given
// level. Both are equal to e when e does not depend on this variable.
func (b *Manager) EdgeCofactors(e Edge, level int) (Edge, Edge) {
	return b.cofactors(e, int32(level))
}

// EdgeValue returns the value of a leaf; False is read as 0.
func (b *Manager) EdgeValue(e Edge) float64 {
	return b.value(e)
}

// EdgeIsZero returns true if e is a leaf with value 0, that is either False or
// the numeric leaf Zero.
func (b *Manager) EdgeIsZero(e Edge) bool {
	return e == falseEdge || e == b.zero
}
