// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"github.com/pkg/errors"
)

// Node is a reference to a decision diagram. It represents the atomic unit of
// interactions and computations within a Manager. The Manager hands out at
// most one live Node for each diagram, so that two Nodes are equal (==) if and
// only if they denote the same function.
//
// Nodes are reference counted: a node in the table cannot be reclaimed while
// some Node pointing to it is reachable. Reference counts are decremented
// automatically when the Go runtime collects the Node, so there is no need to
// release them explicitly. A Node must not outlive its Manager.
type Node *handle

// handle is the value behind a Node; it holds one reference on its node.
type handle struct {
	e Edge
	m *Manager
}

// checkptr returns an error if n is not a valid Node for b.
func (b *Manager) checkptr(n Node) error {
	if n == nil {
		return errors.Wrap(ErrInvalidArgument, "nil node")
	}
	if int(n.e.index()) >= len(b.nodes) || b.nodes[n.e.index()].low == nilEdge {
		return errors.Wrapf(ErrInvalidArgument, "node %d is not allocated", n.e.index())
	}
	if n.m != b {
		return errors.Wrapf(ErrInvalidArgument, "node %d does not belong to this manager", n.e.index())
	}
	if w, ok := b.handles[n.e]; !ok || w.Value() != n {
		return errors.Wrapf(ErrInvalidArgument, "node %d does not belong to this manager", n.e.index())
	}
	return nil
}

// Edge returns the edge referenced by n, for use with the read-only walking
// functions such as EdgeLow or EdgeValue. The result is only meaningful while
// n is alive. We return an invalid edge, and set the error status, if n is not
// a valid Node.
func (b *Manager) Edge(n Node) Edge {
	if err := b.checkptr(n); err != nil {
		b.seterror(ErrInvalidArgument, "wrong operand in call to Edge: %s", err)
		return nilEdge
	}
	return n.e
}

// FromEdge returns a Node for an edge obtained by walking a live diagram.
func (b *Manager) FromEdge(e Edge) Node {
	if e == nilEdge || int(e.index()) >= len(b.nodes) || b.nodes[e.index()].low == nilEdge {
		return b.seterror(ErrInvalidArgument, "invalid edge in call to FromEdge")
	}
	return b.retnode(e)
}
