// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"fmt"
	"math"
)

// Operator describe the potential (binary) operations available on an Apply.
// Operators OPand to OPinvimp are Boolean and can only be used with Boolean
// diagrams; only OPand, OPxor, OPor and OPnand can be used in AppEx. The
// operators from OPplus onward combine numeric leaves and always return a
// numeric diagram (Boolean operands are read as 0/1 diagrams). Operators
// registered with LeafOperator are numbered after the predefined ones.
type Operator int

const (
	OPand     Operator = iota // Boolean conjunction
	OPxor                     // Exclusive or
	OPor                      // Disjunction
	OPnand                    // Negation of and
	OPnor                     // Negation of or
	OPimp                     // Implication
	OPbiimp                   // Equivalence
	OPdiff                    // Difference
	OPless                    // Set difference
	OPinvimp                  // Reverse implication
	OPplus                    // Sum of leaves
	OPminus                   // Difference of leaves
	OPtimes                   // Product of leaves
	OPdivide                  // Division of leaves, with 0/x = 0
	OPmin                     // Minimum of leaves
	OPmax                     // Maximum of leaves
	OPeq                      // 1 if leaves are equal, 0 otherwise
	OPneq                     // 1 if leaves are different, 0 otherwise
	OPgreater                 // 1 if the left leaf is strictly greater, 0 otherwise
	OPgeq                     // 1 if the left leaf is greater or equal, 0 otherwise
	opcustom                  // first identifier of user defined operators
)

var opnames = [opcustom]string{
	OPand:     "and",
	OPxor:     "xor",
	OPor:      "or",
	OPnand:    "nand",
	OPnor:     "nor",
	OPimp:     "imp",
	OPbiimp:   "biimp",
	OPdiff:    "diff",
	OPless:    "less",
	OPinvimp:  "invimp",
	OPplus:    "plus",
	OPminus:   "minus",
	OPtimes:   "times",
	OPdivide:  "divide",
	OPmin:     "min",
	OPmax:     "max",
	OPeq:      "eq",
	OPneq:     "neq",
	OPgreater: "greater",
	OPgeq:     "geq",
}

func (op Operator) String() string {
	if op >= 0 && op < opcustom {
		return opnames[op]
	}
	return fmt.Sprintf("op#%d", int(op))
}

func (op Operator) boolean() bool {
	return op >= OPand && op <= OPinvimp
}

var opres = [OPinvimp + 1][2][2]int{
	//                      00    01               10    11
	OPand:    {0: [2]int{0: 0, 1: 0}, 1: [2]int{0: 0, 1: 1}}, // 0001
	OPxor:    {0: [2]int{0: 0, 1: 1}, 1: [2]int{0: 1, 1: 0}}, // 0110
	OPor:     {0: [2]int{0: 0, 1: 1}, 1: [2]int{0: 1, 1: 1}}, // 0111
	OPnand:   {0: [2]int{0: 1, 1: 1}, 1: [2]int{0: 1, 1: 0}}, // 1110
	OPnor:    {0: [2]int{0: 1, 1: 0}, 1: [2]int{0: 0, 1: 0}}, // 1000
	OPimp:    {0: [2]int{0: 1, 1: 1}, 1: [2]int{0: 0, 1: 1}}, // 1101
	OPbiimp:  {0: [2]int{0: 1, 1: 0}, 1: [2]int{0: 0, 1: 1}}, // 1001
	OPdiff:   {0: [2]int{0: 0, 1: 0}, 1: [2]int{0: 1, 1: 0}}, // 0010
	OPless:   {0: [2]int{0: 0, 1: 1}, 1: [2]int{0: 0, 1: 0}}, // 0100
	OPinvimp: {0: [2]int{0: 1, 1: 0}, 1: [2]int{0: 1, 1: 1}}, // 1011
}

// ************************************************************

// leafop is an operator on numeric leaves registered with LeafOperator.
type leafop struct {
	name        string
	fn          func(x, y float64) float64
	identity    float64
	commutative bool
}

// Operator returns the identifier of the leaf operator registered under name
// with option LeafOperator, or false if there is none.
func (b *Manager) Operator(name string) (Operator, bool) {
	for k, op := range b.leafops {
		if op.name == name {
			return opcustom + Operator(k), true
		}
	}
	return 0, false
}

func (b *Manager) validop(op Operator) bool {
	return op >= 0 && int(op) < int(opcustom)+len(b.leafops)
}

// commutative returns true if the result of op does not depend on the order of
// its operands. We use it to normalize cache keys.
func (b *Manager) commutative(op Operator) bool {
	switch op {
	case OPand, OPxor, OPor, OPnand, OPnor, OPbiimp, OPplus, OPtimes, OPmin, OPmax, OPeq, OPneq:
		return true
	}
	if op >= opcustom {
		return b.leafops[op-opcustom].commutative
	}
	return false
}

func b2f(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// leafop computes the result of op on two numeric values. This is the single
// dispatch point between the diagram engine and the numeric domain.
func (b *Manager) leafop(op Operator, x, y float64) float64 {
	switch op {
	case OPplus:
		return x + y
	case OPminus:
		return x - y
	case OPtimes:
		return x * y
	case OPdivide:
		if x == 0 {
			return 0
		}
		return x / y
	case OPmin:
		return math.Min(x, y)
	case OPmax:
		return math.Max(x, y)
	case OPeq:
		return b2f(x == y)
	case OPneq:
		return b2f(x != y)
	case OPgreater:
		return b2f(x > y)
	case OPgeq:
		return b2f(x >= y)
	}
	return b.leafops[op-opcustom].fn(x, y)
}
