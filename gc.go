// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

// gcstat stores status information about garbage collections. We use a stack
// (slice) of objects to record the sequence of GC during a computation.
type gcstat struct {
	setfinalizers    uint64    // Total number of external references to nodes
	calledfinalizers uint64    // Number of external references that were freed
	history          []gcpoint // Snaphot of GC stats at each occurrence
}

type gcpoint struct {
	nodes            int // Total number of allocated nodes in the nodetable
	freenodes        int // Number of free nodes in the nodetable
	setfinalizers    int // Total number of external references to nodes
	calledfinalizers int // Number of external references that were freed
}

// releaseQueue collects the edges of Nodes reclaimed by the Go runtime. The
// cleanup functions run on a runtime goroutine, so this is the only part of a
// Manager protected by a lock.
type releaseQueue struct {
	mu    sync.Mutex
	edges []Edge
}

func (q *releaseQueue) push(e Edge) {
	q.mu.Lock()
	q.edges = append(q.edges, e)
	q.mu.Unlock()
}

func (q *releaseQueue) drain() []Edge {
	q.mu.Lock()
	res := q.edges
	q.edges = nil
	q.mu.Unlock()
	return res
}

// release decrements the reference counts of the nodes whose Node has been
// collected since the last call.
func (b *Manager) release() {
	for _, e := range b.released.drain() {
		n := e.index()
		if b.nodes[n].refcou > 0 && b.nodes[n].refcou < _MAXREFCOUNT {
			b.nodes[n].refcou--
		}
		if w, ok := b.handles[e]; ok && w.Value() == nil {
			delete(b.handles, e)
		}
		b.gcstat.calledfinalizers++
	}
}

// *************************************************************************

// AddRef increases the reference count on node n and returns n so that calls
// can be easily chained together. A call to AddRef can never raise an error,
// even if we access an unused node or a value outside the range of the table.
//
// Reference counts are managed automatically. AddRef can be used to pin a
// diagram in the table even when no Node points to it anymore, for instance to
// keep a result in the caches; it must be balanced with a call to DelRef.
func (b *Manager) AddRef(n Node) Node {
	if n == nil || int(n.e.index()) >= len(b.nodes) || b.nodes[n.e.index()].low == nilEdge {
		return n
	}
	if b.nodes[n.e.index()].refcou < _MAXREFCOUNT {
		b.nodes[n.e.index()].refcou++
	}
	return n
}

// DelRef decreases the reference count on a node and returns n so that calls
// can be easily chained together. A call to DelRef can never raise an error,
// even if we access an unused node or a value outside the range of the table.
func (b *Manager) DelRef(n Node) Node {
	if n == nil || int(n.e.index()) >= len(b.nodes) || b.nodes[n.e.index()].low == nilEdge {
		return n
	}
	if b.nodes[n.e.index()].refcou <= 1 {
		// the last reference belongs to the Node itself
		return n
	}
	if b.nodes[n.e.index()].refcou < _MAXREFCOUNT {
		b.nodes[n.e.index()].refcou--
	}
	return n
}

// GC explicitly starts a garbage collection of the nodes that are no longer
// referenced. It is not necessary to call GC, since collections are triggered
// when the node table is full, but it can be used to get accurate statistics.
func (b *Manager) GC() {
	b.gbc()
}

// *************************************************************************

// gbc is the garbage collector called for reclaiming memory, inside a call to
// makenode, when there are no free positions available. Allocated nodes that
// are not reclaimed do not move.
func (b *Manager) gbc() {
	// We take into account the Nodes collected by the Go runtime since the
	// last collection. We could explicitly ask the runtime to run its GC, but
	// this is blocking and time consuming.
	b.release()
	b.log.WithFields(logrus.Fields{
		"nodes":     len(b.nodes),
		"free":      b.freenum,
		"reclaimed": b.gcstat.calledfinalizers,
	}).Debug("start garbage collection")

	// we append the current stats to the GC history
	b.gcstat.history = append(b.gcstat.history, gcpoint{
		nodes:            len(b.nodes),
		freenodes:        b.freenum,
		setfinalizers:    int(b.gcstat.setfinalizers),
		calledfinalizers: int(b.gcstat.calledfinalizers),
	})
	b.gcstat.setfinalizers = 0
	b.gcstat.calledfinalizers = 0

	// we mark the nodes in the refstack to avoid collecting them
	for _, r := range b.refstack {
		if r != nilEdge {
			b.markrec(r.index())
		}
	}
	// we also protect nodes with a positive refcount (and therefore also the
	// ones with a MAXREFCOUNT, such has variables)
	for k := range b.nodes {
		if b.nodes[k].refcou > 0 {
			b.markrec(int32(k))
		}
		b.nodes[k].hash = 0
	}
	b.freepos = 0
	b.freenum = 0
	// we do a pass through the nodes list to update the hash chains and void
	// the unmarked nodes. After finishing this pass, b.freepos points to the
	// first free position in b.nodes, or it is 0 if we found none.
	for n := int32(len(b.nodes) - 1); n > 0; n-- {
		leaf := b.nodes[n].level&_LEVELMASK == _LEAFLEVEL
		if b.ismarked(n) && (b.nodes[n].low != nilEdge) {
			b.unmarknode(n)
			if leaf {
				continue
			}
			hash := b.ptrhash(n)
			b.nodes[n].next = b.nodes[hash].hash
			b.nodes[hash].hash = n
			continue
		}
		if leaf && b.nodes[n].low != nilEdge {
			delete(b.leaves, math.Float64bits(b.nodes[n].value))
		}
		b.nodes[n].low = nilEdge
		b.nodes[n].high = nilEdge
		b.nodes[n].level = 0
		b.nodes[n].next = b.freepos
		b.freepos = n
		b.freenum++
	}
	b.unmarknode(0)
	// we also invalidate the caches
	b.cachereset()
	b.log.WithField("free", b.freenum).Debug("end garbage collection")
}

// *************************************************************************
// RECURSIVE MARK / UNMARK

func (b *Manager) markrec(n int32) {
	if b.ismarked(n) || (b.nodes[n].low == nilEdge) {
		return
	}
	b.marknode(n)
	if b.nodes[n].level&_LEVELMASK == _LEAFLEVEL {
		return
	}
	b.markrec(b.nodes[n].low.index())
	b.markrec(b.nodes[n].high.index())
}

// markcount returns the number of nodes reachable from n, including leaves,
// and mark them. Marks must be removed with unmarkall.
func (b *Manager) markcount(n int32) int {
	if b.ismarked(n) || (b.nodes[n].low == nilEdge) {
		return 0
	}
	b.marknode(n)
	if b.nodes[n].level&_LEVELMASK == _LEAFLEVEL {
		return 1
	}
	return 1 + b.markcount(b.nodes[n].low.index()) + b.markcount(b.nodes[n].high.index())
}

func (b *Manager) unmarkall() {
	for k, v := range b.nodes {
		if v.low == nilEdge || !b.ismarked(int32(k)) {
			continue
		}
		b.unmarknode(int32(k))
	}
}

// *************************************************************************
// private functions to manipulate the refstack; used to prevent nodes that are
// currently being built (e.g. transient nodes built during an apply) to be
// reclaimed during GC.

func (b *Manager) initref() {
	b.refstack = b.refstack[:0]
}

func (b *Manager) pushref(n Edge) Edge {
	b.refstack = append(b.refstack, n)
	return n
}

func (b *Manager) popref(a int) {
	b.refstack = b.refstack[:len(b.refstack)-a]
}
