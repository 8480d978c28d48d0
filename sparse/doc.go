// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package sparse defines an explicit, row compressed, representation for the
transition matrices of Markov chains and Markov Decision Processes (MDP), and
a builder that extracts such matrices from decision diagrams.

A Matrix has three levels. Each state has a range of choices (StateStart),
each choice has a range of successors (ChoiceStart) with their probabilities.
Choices also carry an action identifier and, optionally, a reward. The
choices of a state are sorted by action, so that the choices with the same
action form a contiguous group; group boundaries are stored explicitly in
GroupStart and the groups of each state in StateGroup.

Use Build to extract a matrix from a transition relation encoded as an ADD
together with the ODD of the reachable states, and FromExplicit to build a
matrix from explicit lists of choices. A Markov chain is a Matrix with at
most one choice per state. Matrices can also hold rates, for continuous time
models, in which case method Uniformize returns the uniformized chain.
*/
package sparse
