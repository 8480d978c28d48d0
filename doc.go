// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package mtrudd defines a decision diagram engine for symbolic probabilistic
model checking. A Manager stores Binary Decision Diagrams (BDD), used to
represent sets of states and transition relations, together with
Multi-Terminal Binary Decision Diagrams (MTBDD, also called ADD) whose leaves
are floating point values, used to represent probability matrices, rewards
and vectors of values.

# Basics

Each Manager has a fixed order of variables, numbered from 0 to Varnum, where
variable i is always at level i; the number of variables can be increased
with ExtVarnum. Most operations return a Node, which is a reference to a
diagram in the table of the Manager. Diagrams are canonical: two Nodes are
equal (==) if and only if they represent the same function.

Boolean diagrams use complemented edges, so negation (Not) is a constant time
operation and there is a single leaf, the constant one, that stands for True
and for the numeric value 1.0. Numeric diagrams never use complemented edges
and have one leaf for each value; leaves are unique. Boolean operators (OPand,
OPor, ...) can only be applied to Boolean diagrams, while arithmetic operators
(OPplus, OPtimes, ...) read Boolean operands as 0/1 diagrams. Conversions
between the two worlds are done with ToADD, Threshold, StrictThreshold and
NonZero.

# Errors

Operations do not return an error value. Instead, the Manager records the
first error (see methods Errored and Err) and returns a nil Node, so that
computations can be chained and checked at the end. Errors are either
ErrInvalidArgument or ErrOutOfMemory and can be tested with errors.Is.

# Use of build tags

To get access to better statistics about caches, and to turn internal
inconsistencies into panics, you can compile your executable with the build
tag `debug`.

# Automatic memory management

Like with MuDDy, a ML interface to BuDDy, we piggyback on the garbage
collection mechanism offered by our host language (in our case Go). We take
care of resizing the node table and of collecting unused nodes directly in
the library, but "external" references to nodes made by user code are
automatically managed by the Go runtime, using cleanup functions attached to
each Node. A Manager is not safe for concurrent use.

The subpackages build on this engine: odd (indexing of reachable states),
sparse (explicit sparse matrices), solver (value iteration and uniformization),
witness (strategy and counterexample graphs), model (symbolic models) and
check (the query front end).
*/
package mtrudd
