// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

type node struct {
	refcou int32   // Count the number of external references
	level  int32   // Order of the variable in the diagram, with marking bits
	low    Edge    // Reference to the false branch, nilEdge if the node is free
	high   Edge    // Reference to the true branch, never complemented
	hash   int32   // Index where to (possibly) find node with this hash value
	next   int32   // Next index to check in case of a collision, 0 if last
	value  float64 // Value of a leaf
}

const (
	_MARKBIT    int32 = 0x200000
	_NUMERICBIT int32 = 0x400000
	_LEVELMASK  int32 = 0x1FFFFF
)

// ************************************************************

func (b *Manager) ismarked(n int32) bool {
	return (b.nodes[n].level & _MARKBIT) != 0
}

func (b *Manager) marknode(n int32) {
	b.nodes[n].level = b.nodes[n].level | _MARKBIT
}

func (b *Manager) unmarknode(n int32) {
	b.nodes[n].level = b.nodes[n].level &^ _MARKBIT
}

// isnumeric returns true if the diagram below e reaches a leaf other than the
// constant one. Such diagrams never carry complemented edges.
func (b *Manager) isnumeric(e Edge) bool {
	return (b.nodes[e.index()].level & _NUMERICBIT) != 0
}

// ************************************************************

// level returns the variable level of the node referenced by e, or _LEAFLEVEL
// for terminal nodes.
func (b *Manager) level(e Edge) int32 {
	return b.nodes[e.index()].level & _LEVELMASK
}

func (b *Manager) isleaf(e Edge) bool {
	return b.level(e) == _LEAFLEVEL
}

// low returns the false branch of e, pushing the complement bit of e down.
func (b *Manager) low(e Edge) Edge {
	return b.nodes[e.index()].low ^ (e & 1)
}

// high returns the true branch of e, pushing the complement bit of e down.
func (b *Manager) high(e Edge) Edge {
	return b.nodes[e.index()].high ^ (e & 1)
}

// value returns the numeric value of a leaf. The complement of the one leaf
// is read as 0.
func (b *Manager) value(e Edge) float64 {
	if e.index() == 0 {
		if e.complemented() {
			return 0
		}
		return 1
	}
	return b.nodes[e.index()].value
}

// cofactors returns the two cofactors of e with respect to the variable at
// the given level. Both cofactors are e itself if e does not depend on level.
func (b *Manager) cofactors(e Edge, level int32) (Edge, Edge) {
	if b.level(e) != level {
		return e, e
	}
	return b.low(e), b.high(e)
}
