// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Package check answers probabilistic reachability and reward queries on
// symbolic models. A query goes through the whole pipeline: computation of
// the reachable states, construction of the ODD and of the sparse matrix,
// value iteration, and, for interval iteration, extraction of a witness
// graph when the bounds do not meet.
//
// Each query runs in an OpenTelemetry span and is tagged with a run
// identifier that is also attached to log entries.
package check
