// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"fmt"
	"math"
)

// ************************************************************
// cache is used for caching apply/exist etc. results
type cache struct {
	ratio int // value used to resize the caches as a factor of the number of nodes
	table []cacheData
}

// cacheStat stores status information about cache usage
type cacheStat struct {
	uniqueAccess int // accesses to the unique node table
	uniqueChain  int // iterations through the cache chains in the unique node table
	uniqueHit    int // entries actually found in the the unique node table
	uniqueMiss   int // entries not found in the the unique node table
	opHit        int // entries found in the operator caches
	opMiss       int // entries not found in the operator caches
}

// cacheData is a unit of information stored in the operation caches. Field
// c is either an operand, an operator or a cache id.
type cacheData struct {
	res Edge
	a   Edge
	b   Edge
	c   int
}

// ************************************************************

// Different kind of caches used in the manager

type applycache struct {
	cache          // Cache for apply results
	op    Operator // Current operation during an apply
}

type itecache struct {
	cache // Cache for ITE results
}

type quantcache struct {
	cache     // Cache for exist/forall and abstraction results
	id    int // Current cache id for quantifications
}

// appexcache are a mix of quant and apply caches
type appexcache struct {
	cache          // Cache for appex results
	id    int      // Current cache id for quantifications
	op    Operator // Current operator for appex
}

type replacecache struct {
	cache     // Cache for replace results
	id    int // Current cache id for replace
}

type misccache struct {
	cache     // Cache for conversions between Boolean and numeric diagrams
	id    int // Current cache id for misc computations
}

// ************************************************************

// Hash value modifiers to distinguish between entries in misccache; ids for
// thresholds are allocated from cacheid_THRESHOLD upward.
const (
	cacheid_TOADD     int = 0x0
	cacheid_THRESHOLD int = 0x1
)

// Hash value modifiers for quantification
const (
	cacheid_EXIST  int = 0x0
	cacheid_FORALL int = 0x1
	cacheid_UNIQUE int = 0x2
	cacheid_APPEX  int = 0x3
)

// ************************************************************

// Basic functions shared by all caches

func (bc *cache) cacheinit(size int, ratio int) {
	// we never check if the creation of the slice panic because of lack of memory
	size = primeGte(size)
	bc.ratio = ratio
	bc.table = make([]cacheData, size)
	bc.cachereset()
}

func (bc *cache) cacheresize(nodesize int) {
	if bc.ratio > 0 {
		bc.cacheinit((nodesize*bc.ratio)/100, bc.ratio)
		return
	}
	bc.cachereset()
}

func (bc *cache) cachereset() {
	for k := range bc.table {
		bc.table[k].a = nilEdge
	}
}

// *************************************************************************
// Setup and shutdown

func (b *Manager) cacheinit(c *configs) {
	size := c.cachesize
	if size <= 0 {
		size = len(b.nodes)/5 + 1
	}
	if c.cacheratio > 0 && (len(b.nodes)*c.cacheratio)/100 > size {
		size = (len(b.nodes) * c.cacheratio) / 100
	}
	b.applycache = &applycache{}
	b.applycache.cacheinit(size, c.cacheratio)
	b.itecache = &itecache{}
	b.itecache.cacheinit(size, c.cacheratio)
	b.quantcache = &quantcache{}
	b.quantcache.cacheinit(size, c.cacheratio)
	b.appexcache = &appexcache{}
	b.appexcache.cacheinit(size, c.cacheratio)
	b.replacecache = &replacecache{}
	b.replacecache.cacheinit(size, c.cacheratio)
	b.misccache = &misccache{}
	b.misccache.cacheinit(size, c.cacheratio)
}

func (b *Manager) cachereset() {
	b.applycache.cachereset()
	b.itecache.cachereset()
	b.quantcache.cachereset()
	b.appexcache.cachereset()
	b.replacecache.cachereset()
	b.misccache.cachereset()
}

func (b *Manager) cacheresize() {
	b.applycache.cacheresize(len(b.nodes))
	b.itecache.cacheresize(len(b.nodes))
	b.quantcache.cacheresize(len(b.nodes))
	b.appexcache.cacheresize(len(b.nodes))
	b.replacecache.cacheresize(len(b.nodes))
	b.misccache.cacheresize(len(b.nodes))
}

// ************************************************************
//
// Quantification Cache
//

// quantset2cache takes a variable list, similar to the ones generated with
// Makeset, and set the variables in the quantification cache.
func (b *Manager) quantset2cache(n Edge) error {
	if n == falseEdge {
		b.seterror(ErrInvalidArgument, "illegal variable set (false) in quantification")
		return b.error
	}
	b.quantsetID++
	if b.quantsetID == math.MaxInt32 {
		b.quantset = make([]int32, b.varnum)
		b.quantsetID = 1
	}
	b.quantlast = -1
	for i := n; !b.isleaf(i); i = b.high(i) {
		b.quantset[b.level(i)] = b.quantsetID
		b.quantlast = b.level(i)
	}
	return nil
}

// ************************************************************

// Prints information about the cache performance. The information contains the
// number of accesses to the unique node table, the number of times a node was
// (not) found there and how many times a hash chain had to traversed. Hit and
// miss count is also given for the operator caches.

func (c cacheStat) String() string {
	res := fmt.Sprintf("Unique Access:  %d\n", c.uniqueAccess)
	res += fmt.Sprintf("Unique Chain:   %d\n", c.uniqueChain)
	res += fmt.Sprintf("Unique Hit:     %d\n", c.uniqueHit)
	res += fmt.Sprintf("Unique Miss:    %d\n", c.uniqueMiss)
	res += fmt.Sprintf("Operator Hits:  %d\n", c.opHit)
	res += fmt.Sprintf("Operator Miss:  %d", c.opMiss)
	return res
}
