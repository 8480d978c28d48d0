// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"math"
	"runtime"
	"weak"

	"github.com/sirupsen/logrus"
)

// retnode creates a Node for external use and registers a cleanup function on
// it so that we can reclaim the ressource during GC. If a live Node for e
// already exists we return it, which gives pointer equality between Nodes for
// the same function.
func (b *Manager) retnode(e Edge) Node {
	if e == nilEdge {
		return nil
	}
	if _DEBUG && (int(e.index()) >= len(b.nodes) || b.nodes[e.index()].low == nilEdge) {
		b.log.Panicf("unexpected error; b.retnode(%d) not valid", e)
	}
	if w, ok := b.handles[e]; ok {
		if h := w.Value(); h != nil {
			return h
		}
	}
	h := &handle{e: e, m: b}
	if n := e.index(); b.nodes[n].refcou < _MAXREFCOUNT {
		b.nodes[n].refcou++
	}
	b.handles[e] = weak.Make(h)
	runtime.AddCleanup(h, b.released.push, e)
	b.gcstat.setfinalizers++
	return h
}

// allocnode returns the index of a free node, or 0 if there is none left
// after a garbage collection and a resize. Nodes in the refstack are protected
// during the collection.
func (b *Manager) allocnode() int32 {
	if b.freepos == 0 {
		// We garbage collect unused nodes to try and find spare space.
		b.gbc()
		// We also test if we are under the threshold for resising.
		if (b.freenum*100)/len(b.nodes) <= b.minfreenodes {
			if err := b.noderesize(); err != nil && b.freepos == 0 {
				b.seterror(err, "cannot allocate a new node (%d nodes in table)", len(b.nodes))
				return 0
			}
		}
		if b.freepos == 0 {
			b.seterror(ErrOutOfMemory, "no free node after garbage collection")
			return 0
		}
	}
	res := b.freepos
	b.freepos = b.nodes[res].next
	b.freenum--
	b.produced++
	return res
}

func (b *Manager) makenode(level int32, low, high Edge) Edge {
	if _DEBUG {
		b.uniqueAccess++
		if low == nilEdge || high == nilEdge {
			b.log.Panicf("unexpected error; makenode(%d, %d, %d)", level, low, high)
		}
	}
	// check whether childs are equal
	if low == high {
		return low
	}
	// the high branch of a stored node is never complemented
	if high.complemented() {
		res := b.makenode(level, low^1, high^1)
		if res == nilEdge {
			return nilEdge
		}
		return res ^ 1
	}
	// otherwise try to find an existing node using the hash and next fields
	hash := b.nodehash(level, low, high)
	res := b.nodes[hash].hash
	for res != 0 {
		if b.nodes[res].level&_LEVELMASK == level && b.nodes[res].low == low && b.nodes[res].high == high {
			if _DEBUG {
				b.uniqueHit++
			}
			return mkedge(res, false)
		}
		res = b.nodes[res].next
		if _DEBUG {
			b.uniqueChain++
		}
	}
	if _DEBUG {
		b.uniqueMiss++
	}
	// If no existing node, we build one. The children must be protected by
	// the caller since allocnode may trigger a garbage collection.
	if res = b.allocnode(); res == 0 {
		return nilEdge
	}
	hash = b.nodehash(level, low, high)
	numeric := (b.nodes[low.index()].level | b.nodes[high.index()].level) & _NUMERICBIT
	b.nodes[res] = node{
		level: level | numeric,
		low:   low,
		high:  high,
		hash:  b.nodes[res].hash,
		next:  b.nodes[hash].hash,
	}
	b.nodes[hash].hash = res
	return mkedge(res, false)
}

// makeleaf returns the (unique) leaf with value v.
func (b *Manager) makeleaf(v float64) Edge {
	if math.IsNaN(v) {
		b.seterror(ErrInvalidArgument, "NaN leaf")
		return nilEdge
	}
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	key := math.Float64bits(v)
	if n, ok := b.leaves[key]; ok {
		return mkedge(n, false)
	}
	res := b.allocnode()
	if res == 0 {
		return nilEdge
	}
	b.nodes[res] = node{
		level: _LEAFLEVEL | _NUMERICBIT,
		low:   trueEdge,
		high:  trueEdge,
		hash:  b.nodes[res].hash,
		value: v,
	}
	b.leaves[key] = res
	return mkedge(res, false)
}

func (b *Manager) noderesize() error {
	oldsize := len(b.nodes)
	nodesize := len(b.nodes)
	if (oldsize >= b.maxnodesize) && (b.maxnodesize > 0) {
		return ErrOutOfMemory
	}
	if oldsize > (math.MaxInt32 >> 1) {
		nodesize = math.MaxInt32 - 1
	} else {
		nodesize = nodesize << 1
	}
	if b.maxnodeincrease > 0 && nodesize > (oldsize+b.maxnodeincrease) {
		nodesize = oldsize + b.maxnodeincrease
	}
	if (nodesize > b.maxnodesize) && (b.maxnodesize > 0) {
		nodesize = b.maxnodesize
	}
	nodesize = primeLte(nodesize)
	if nodesize <= oldsize {
		return ErrOutOfMemory
	}
	b.log.WithFields(logrus.Fields{
		"from": oldsize,
		"to":   nodesize,
	}).Debug("resize node table")

	tmp := b.nodes
	b.nodes = make([]node, nodesize)
	copy(b.nodes, tmp)
	for n := oldsize; n < nodesize; n++ {
		b.nodes[n].low = nilEdge
		b.nodes[n].high = nilEdge
	}
	// We recompute the hashes since nodesize is modified.
	for n := range b.nodes {
		b.nodes[n].hash = 0
	}
	b.freepos = 0
	b.freenum = 0
	for n := int32(nodesize - 1); n > 0; n-- {
		switch {
		case b.nodes[n].low == nilEdge:
			b.nodes[n].next = b.freepos
			b.freepos = n
			b.freenum++
		case b.nodes[n].level&_LEVELMASK == _LEAFLEVEL:
			// leaves are found through b.leaves
		default:
			hash := b.ptrhash(n)
			b.nodes[n].next = b.nodes[hash].hash
			b.nodes[hash].hash = n
		}
	}
	b.resizes++
	b.cacheresize()
	return nil
}
