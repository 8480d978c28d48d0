// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import "github.com/pkg/errors"

// Relation describes a transition relation over present state variables
// (Present) and next state variables (Next). Both slices have the same length
// and Present[i] is renamed into Next[i] (and back) when computing images.
type Relation struct {
	Trans   Node  // Boolean diagram over present and next variables
	Present []int // present state variables
	Next    []int // next state variables
}

type imager struct {
	presentset Node
	nextset    Node
	tonext     Replacer
	topresent  Replacer
}

func (b *Manager) imager(r Relation) (*imager, error) {
	if err := b.checkptr(r.Trans); err != nil {
		return nil, errors.Wrap(err, "wrong transition relation")
	}
	if b.isnumeric(r.Trans.e) {
		return nil, errors.Wrap(ErrInvalidArgument, "numeric transition relation in image computation")
	}
	tonext, err := b.NewReplacer(r.Present, r.Next)
	if err != nil {
		return nil, err
	}
	topresent, err := b.NewReplacer(r.Next, r.Present)
	if err != nil {
		return nil, err
	}
	res := &imager{
		presentset: b.Makeset(r.Present),
		nextset:    b.Makeset(r.Next),
		tonext:     tonext,
		topresent:  topresent,
	}
	if b.Errored() {
		return nil, b.Err()
	}
	return res, nil
}

// Post returns the set of successors, over the present state variables, of
// the states in from.
func (b *Manager) Post(from Node, r Relation) Node {
	im, err := b.imager(r)
	if err != nil {
		return b.seterror(err, "in call to Post")
	}
	return b.Replace(b.AndExist(im.presentset, from, r.Trans), im.topresent)
}

// Pre returns the set of predecessors of the states in to.
func (b *Manager) Pre(to Node, r Relation) Node {
	im, err := b.imager(r)
	if err != nil {
		return b.seterror(err, "in call to Pre")
	}
	return b.AndExist(im.nextset, b.Replace(to, im.tonext), r.Trans)
}

// Reachable returns the set of states reachable from init with a least fixed
// point computation.
func (b *Manager) Reachable(init Node, r Relation) Node {
	im, err := b.imager(r)
	if err != nil {
		return b.seterror(err, "in call to Reachable")
	}
	reached := init
	for {
		next := b.Replace(b.AndExist(im.presentset, reached, r.Trans), im.topresent)
		next = b.Or(reached, next)
		if next == nil || b.Equal(next, reached) {
			return next
		}
		reached = next
	}
}

// BackwardReachable returns the set of states that can reach a state in
// target, including target itself.
func (b *Manager) BackwardReachable(target Node, r Relation) Node {
	im, err := b.imager(r)
	if err != nil {
		return b.seterror(err, "in call to BackwardReachable")
	}
	reached := target
	for {
		next := b.AndExist(im.nextset, b.Replace(reached, im.tonext), r.Trans)
		next = b.Or(reached, next)
		if next == nil || b.Equal(next, reached) {
			return next
		}
		reached = next
	}
}
