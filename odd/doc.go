// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package odd implements Offset-labeled Decision Diagrams (ODD), used to number
the states of a symbolic state space.

An ODD is built from a diagram denoting a set of states (typically the
reachable states of a model) and from the list of state variables. Each node
of the ODD records how many states can be found below its false and true
branches, so that the index of a state is the sum of the counts of the false
branches on the left of its path. This gives a bijection between the states
and the integers in [0, Size()), used to move sets and vectors of values
between decision diagrams and explicit arrays (see ToVector and FromVector).

Nodes of the diagram that are reached several times at the same depth share
the same ODD node, so the size of an ODD is bounded by the size of the
diagram times the number of variables.
*/
package odd
