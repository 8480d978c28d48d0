// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"math"
	"weak"

	"github.com/sirupsen/logrus"
)

// Manager owns a table of decision diagram nodes, implemented using the data
// structures and algorithms found in the BuDDy library, extended with numeric
// leaves and complemented edges. Every Node handed out by a Manager must only
// be used with this Manager. A Manager is not safe for concurrent use.
type Manager struct {
	varnum          int32                         // number of variables
	varset          [][2]Edge                     // positive and negative occurrence of each variable
	refstack        []Edge                        // Internal node reference stack
	error                                         // Error status to help chain operations
	nodes           []node                        // List of all the nodes. The one leaf is always kept at index 0
	freenum         int                           // Number of free nodes
	freepos         int32                         // First free node
	zero            Edge                          // The numeric leaf 0.0, never collected
	leaves          map[uint64]int32              // Unicity table for leaves, indexed by the bits of their value
	handles         map[Edge]weak.Pointer[handle] // Live external references, one per edge
	released        releaseQueue                  // Edges whose handle has been reclaimed by the runtime
	maxnodesize     int                           // Maximum total number of nodes (0 if no limit)
	maxnodeincrease int                           // Maximum number of nodes that can be added to the table at each resize (0 if no limit)
	minfreenodes    int                           // Minimum number of nodes that should be left after GC before triggering a resize
	quantset        []int32                       // Current variable set for quant.
	quantsetID      int32                         // Current id used in quantset
	quantlast       int32                         // Current last variable to be quant.
	replaceid       int                           // Last id given to a Replacer
	thresholdid     int                           // Last cache id used for a threshold conversion
	leafops         []leafop                      // Operators registered with LeafOperator
	log             logrus.FieldLogger            // Destination of debug messages
	bddStats                                      // Information about the table
	gcstat                                        // Information about garbage collections
	cacheStat                                     // Information about the caches
	applycache      *applycache                   // Cache for apply results
	itecache        *itecache                     // Cache for ITE results
	quantcache      *quantcache                   // Cache for exist/forall/abstraction results
	appexcache      *appexcache                   // Cache for AppEx results
	replacecache    *replacecache                 // Cache for Replace results
	misccache       *misccache                    // Cache for conversions
}

// ************************************************************

// bddStats stores status information about the node table.
type bddStats struct {
	produced int // Total number of new nodes ever produced
	resizes  int // Number of times the node table was resized
}

// ************************************************************

// New returns a new Manager with varnum variables, numbered from 0 to
// varnum-1. The order of variables is fixed: variable i is always at level i.
// The initial number of nodes is not critical since the table will be resized
// whenever there are too few nodes left after a garbage collection. But it does
// have some impact on the efficency of the operations. We return a nil Manager
// and an error if the configuration is invalid.
//
// Options are given with the config functions Nodesize, Maxnodesize,
// Maxnodeincrease, Minfreenodes, Cachesize, Cacheratio, Logger and
// LeafOperator.
func New(varnum int, options ...func(*configs)) (*Manager, error) {
	c := makeconfigs(varnum)
	for _, f := range options {
		f(c)
	}
	b := &Manager{}
	b.log = c.logger
	if b.log == nil {
		b.log = logrus.StandardLogger()
	}
	if (varnum < 0) || (int32(varnum) > _MAXVAR-1) {
		b.seterror(ErrInvalidArgument, "bad number of variable (%d) in New", varnum)
		return nil, b.error
	}
	nodesize := primeGte(c.nodesize)
	b.minfreenodes = c.minfreenodes
	b.maxnodeincrease = c.maxnodeincrease
	b.maxnodesize = c.maxnodesize
	// initializing the list of nodes
	b.nodes = make([]node, nodesize)
	for k := range b.nodes {
		b.nodes[k] = node{
			low:  nilEdge,
			high: nilEdge,
			next: int32(k + 1),
		}
	}
	b.nodes[nodesize-1].next = 0
	b.nodes[0] = node{
		refcou: _MAXREFCOUNT,
		level:  _LEAFLEVEL,
		low:    trueEdge,
		high:   trueEdge,
		value:  1,
	}
	b.freepos = 1
	b.freenum = nodesize - 1
	b.leaves = map[uint64]int32{math.Float64bits(1): 0}
	b.handles = make(map[Edge]weak.Pointer[handle])
	b.leafops = c.leafops
	b.cacheinit(c)
	b.refstack = make([]Edge, 0, 2*varnum+4)
	b.zero = b.makeleaf(0)
	b.nodes[b.zero.index()].refcou = _MAXREFCOUNT
	if err := b.setVarnum(varnum); err != nil {
		return nil, err
	}
	b.log.WithFields(logrus.Fields{
		"varnum":    varnum,
		"nodesize":  nodesize,
		"cachesize": len(b.applycache.table),
	}).Debug("new diagram manager")
	return b, nil
}

// ************************************************************

// Ithvar returns a diagram representing the i'th variable on success,
// otherwise we set the error status of the manager and returns nil. The
// requested variable must be in the range [0..Varnum).
func (b *Manager) Ithvar(i int) Node {
	if (i < 0) || (int32(i) >= b.varnum) {
		return b.seterror(ErrInvalidArgument, "unknown variable used (%d) in call to Ithvar", i)
	}
	return b.retnode(b.varset[i][0])
}

// NIthvar returns a diagram representing the negation of the i'th variable on
// success, otherwise nil. See Ithvar for further info.
func (b *Manager) NIthvar(i int) Node {
	if (i < 0) || (int32(i) >= b.varnum) {
		return b.seterror(ErrInvalidArgument, "unknown variable used (%d) in call to NIthvar", i)
	}
	return b.retnode(b.varset[i][1])
}

// Varnum returns the number of defined variables.
func (b *Manager) Varnum() int {
	return int(b.varnum)
}

// Label returns the variable (index) corresponding to node n. We set the
// manager to its error state and return -1 if we try to access a constant
// node.
func (b *Manager) Label(n Node) int {
	if b.checkptr(n) != nil {
		b.seterror(ErrInvalidArgument, "illegal access to node in call to Label")
		return -1
	}
	if b.isleaf(n.e) {
		b.seterror(ErrInvalidArgument, "try to access label of constant node")
		return -1
	}
	return int(b.level(n.e))
}

// Low returns the false branch of a diagram. We return nil if there is an
// error and set the error flag in the manager.
func (b *Manager) Low(n Node) Node {
	if b.checkptr(n) != nil {
		return b.seterror(ErrInvalidArgument, "illegal access to node in call to Low")
	}
	return b.retnode(b.low(n.e))
}

// High returns the true branch of a diagram. We return nil if there is an
// error and set the error flag in the manager.
func (b *Manager) High(n Node) Node {
	if b.checkptr(n) != nil {
		return b.seterror(ErrInvalidArgument, "illegal access to node in call to High")
	}
	return b.retnode(b.high(n.e))
}

// ************************************************************

// True returns the constant true diagram. It is the same Node than One.
func (b *Manager) True() Node {
	return b.retnode(trueEdge)
}

// False returns the constant false diagram. Note that it is not the same Node
// than Zero, since Boolean and numeric diagrams have separate representations.
func (b *Manager) False() Node {
	return b.retnode(falseEdge)
}

// From returns a (constant) Node from a boolean value.
func (b *Manager) From(v bool) Node {
	if v {
		return b.retnode(trueEdge)
	}
	return b.retnode(falseEdge)
}

// One returns the numeric constant 1.0.
func (b *Manager) One() Node {
	return b.retnode(trueEdge)
}

// Zero returns the numeric constant 0.0. It is a leaf of its own and not the
// same Node than False, which is the complement of One. ToADD maps False to
// Zero, and Threshold or NonZero map the leaf 0 back to False. In numeric
// operations, False is read as 0.
func (b *Manager) Zero() Node {
	return b.retnode(b.zero)
}

// Constant returns the numeric leaf with value v. Leaves are unique: two calls
// with the same value return the same Node. The value -0 is identified with 0
// and a NaN value raises ErrInvalidArgument.
func (b *Manager) Constant(v float64) Node {
	if math.IsNaN(v) {
		return b.seterror(ErrInvalidArgument, "NaN value in call to Constant")
	}
	return b.retnode(b.makeleaf(v))
}

// IsNumeric returns true if n is a numeric diagram, meaning it reaches a leaf
// different from the constant one. The constants True and One are not
// numeric.
func (b *Manager) IsNumeric(n Node) bool {
	if b.checkptr(n) != nil {
		return false
	}
	return b.isnumeric(n.e)
}

// Value returns the value of a constant node and true, or false if n is not a
// leaf. The value of False is 0.
func (b *Manager) Value(n Node) (float64, bool) {
	if b.checkptr(n) != nil || !b.isleaf(n.e) {
		return 0, false
	}
	return b.value(n.e), true
}
