// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import "math"

// _MINFREENODES is the minimal number of nodes (%) that has to be left after a
// garbage collect unless a resize should be done.
const _MINFREENODES int = 20

// _MAXVAR is the maximal number of levels in the diagram. We use only the
// first 21 bits for encoding levels (so also the max number of variables). We
// use the other bits for markings. Hence we make sure to always use int32 to
// avoid problem when we change architecture.
const _MAXVAR int32 = 0x1FFFFF

// _LEAFLEVEL is the level of terminal nodes. It is larger than the level of
// every variable so that leaves always sit at the bottom of a diagram, even
// after a call to ExtVarnum.
const _LEAFLEVEL int32 = _MAXVAR

// _MAXREFCOUNT is the maximal value of the reference counter (refcou), also
// used to stick nodes (like constants and variables) in the node list. It is
// egal to 1023 (10 bits).
const _MAXREFCOUNT int32 = 0x3FF

// _DEFAULTMAXNODEINC is the default value for the maximal increase in the
// number of nodes during a resize. It is approx. one million nodes (1 048 576).
const _DEFAULTMAXNODEINC int = 1 << 20

// _DEFAULTCACHESIZE is the number of entries in the operation caches when no
// size is given with option Cachesize.
const _DEFAULTCACHESIZE int = 10000

// Edge is a reference to a node in the table together with a complement bit.
// The node index is stored in the upper 31 bits and the complement flag in
// the lowest bit, so that negation is a single xor.
//
// Edges are the read-only currency of the walking functions (EdgeLow,
// EdgeHigh, EdgeValue, ...). An Edge obtained from a Node is only meaningful
// while that Node is alive and no other diagram operation is running on the
// same Manager, since operations may trigger a garbage collection.
type Edge uint32

// nilEdge marks free nodes in the table and is also the error result of the
// internal recursive operations.
const nilEdge Edge = math.MaxUint32

// trueEdge is the edge to the constant one leaf, which stands both for the
// Boolean constant true and for the numeric constant 1.0. The Boolean constant
// false is its complement.
const (
	trueEdge  Edge = 0
	falseEdge Edge = 1
)

func (e Edge) index() int32 {
	return int32(e >> 1)
}

func (e Edge) complemented() bool {
	return e&1 == 1
}

func (e Edge) regular() Edge {
	return e &^ 1
}

func mkedge(index int32, complement bool) Edge {
	if complement {
		return Edge(index)<<1 | 1
	}
	return Edge(index) << 1
}
