// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"github.com/sirupsen/logrus"
)

// configs is used to store the values of different parameters of the Manager
type configs struct {
	varnum          int                // number of variables
	nodesize        int                // initial number of nodes in the table
	cachesize       int                // initial cache size (general)
	cacheratio      int                // initial ratio (general, 0 if size constant) between cache size and node table
	maxnodesize     int                // Maximum total number of nodes (0 if no limit)
	maxnodeincrease int                // Maximum number of nodes that can be added to the table at each resize (0 if no limit)
	minfreenodes    int                // Minimum number of nodes that should be left after GC before triggering a resize
	logger          logrus.FieldLogger // destination of debug messages
	leafops         []leafop           // operators registered with LeafOperator
}

func makeconfigs(varnum int) *configs {
	c := &configs{varnum: varnum}
	c.minfreenodes = _MINFREENODES
	c.maxnodeincrease = _DEFAULTMAXNODEINC
	c.cachesize = _DEFAULTCACHESIZE
	// we build enough nodes to include all the variables in varset and the
	// two sticky leaves
	c.nodesize = 2*varnum + 2
	return c
}

// Nodesize is a configuration option (function). Used as a parameter in New it
// sets a preferred initial size for the node table. The size of the table can
// increase during computation. By default we create a table large enough to
// include the constants and the variables used in the call to Ithvar and
// NIthvar.
func Nodesize(size int) func(*configs) {
	return func(c *configs) {
		if size >= 2*c.varnum+2 {
			c.nodesize = size
		}
	}
}

// Maxnodesize is a configuration option (function). Used as a parameter in New
// it sets a limit to the number of nodes in the table. An operation trying to
// raise the number of nodes above this limit will generate an ErrOutOfMemory
// error and return a nil Node. The default value (0) means that there is no
// limit.
func Maxnodesize(size int) func(*configs) {
	return func(c *configs) {
		c.maxnodesize = size
	}
}

// Maxnodeincrease is a configuration option (function). Used as a parameter in
// New it sets a limit on the increase in size of the node table. Below this
// limit we typically double the size of the node list each time we need to
// resize it. The default value is about a million nodes. Set the value to zero
// to avoid imposing a limit.
func Maxnodeincrease(size int) func(*configs) {
	return func(c *configs) {
		c.maxnodeincrease = size
	}
}

// Minfreenodes is a configuration option (function). Used as a parameter in New
// it sets the ratio of free nodes (%) that has to be left after a Garbage
// Collection event. With a ratio of, say 25, we resize the table if the number
// a free nodes is less than 25% of the capacity of the table. The default value
// is 20%.
func Minfreenodes(ratio int) func(*configs) {
	return func(c *configs) {
		c.minfreenodes = ratio
	}
}

// Cachesize is a configuration option (function). Used as a parameter in New it
// sets the initial number of entries in the operation caches. The default value
// is 10 000. See also the Cacheratio config.
func Cachesize(size int) func(*configs) {
	return func(c *configs) {
		c.cachesize = size
	}
}

// Cacheratio is a configuration option (function). Used as a parameter in New
// it sets a "cache ratio" (%) so that caches can grow each time we resize the
// node table. With a cache ratio of r, we have r available entries in the cache
// for every 100 slots in the node table. The default value (0) means that the
// cache size never grows.
func Cacheratio(ratio int) func(*configs) {
	return func(c *configs) {
		c.cacheratio = ratio
	}
}

// Logger is a configuration option (function). Used as a parameter in New it
// sets the logger receiving debug messages about garbage collections and
// resizing of the node table. By default we use the logrus standard logger.
func Logger(log logrus.FieldLogger) func(*configs) {
	return func(c *configs) {
		if log != nil {
			c.logger = log
		}
	}
}

// LeafOperator is a configuration option (function). Used as a parameter in New
// it registers a new binary operator on numeric leaves, identified by name.
// The operator can be retrieved with method Operator and used with Apply like
// the predefined arithmetic operators. The identity element, when not NaN, is
// used for terminal short-cuts: op(identity, x) = x, and also op(x, identity)
// = x when the operator is commutative. Registering a name twice keeps the
// last definition.
func LeafOperator(name string, fn func(x, y float64) float64, identity float64, commutative bool) func(*configs) {
	return func(c *configs) {
		for k := range c.leafops {
			if c.leafops[k].name == name {
				c.leafops[k] = leafop{name: name, fn: fn, identity: identity, commutative: commutative}
				return
			}
		}
		c.leafops = append(c.leafops, leafop{name: name, fn: fn, identity: identity, commutative: commutative})
	}
}
