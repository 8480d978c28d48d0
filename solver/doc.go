// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

/*
Package solver implements value iteration algorithms on the sparse matrices
of package sparse.

The main functions compute optimal reachability probabilities (Until,
BoundedUntil, TimeBoundedUntil), expected rewards (Reward) and coupled lower
and upper bounds (Interval). The combination of the values of the choices of
a state is defined by an Objective: values are first combined inside groups
of choices with the same action (Inner), then between groups (Outer). This
gives the usual minimal and maximal probabilities when both directions are
the same, and games with two players otherwise.

Iterations use either the Jacobi or the Gauss-Seidel scheme, and stop when
two successive vectors are close according to a Criterion. When the maximal
number of iterations is reached, functions return their last values together
with an error wrapping ErrConvergence; callers can use errors.Is to decide
whether to use them.

Before iterating, the graph based algorithms Prob0A, Prob0E, Prob1A and
Prob1E can be used to find the states with probability exactly 0 or 1
(option WithPrecompute, enabled by default). This is needed to obtain exact
bounds with Interval on models with end components.
*/
package solver
