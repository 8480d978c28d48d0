// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package model

import (
	"math"

	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/sparse"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Kind is the type of a model.
type Kind string

const (
	DTMC Kind = "dtmc" // discrete time Markov chain
	MDP  Kind = "mdp"  // Markov decision process
	CTMC Kind = "ctmc" // continuous time Markov chain (Prob are rates)
)

func (k Kind) valid() bool {
	return k == DTMC || k == MDP || k == CTMC
}

// Update is a possible outcome of a command. Next is a Boolean diagram over
// the present and next variables of the layout that relates a state to its
// successor, for example l.NextState(t) or l.Same().
type Update struct {
	Prob float64
	Next mtrudd.Node
}

// Command is a guarded command: in every state of Guard (a Boolean diagram
// over the present variables) the command defines a choice, labeled with
// Action, whose outcomes are given by Updates. The Reward is collected each
// time the choice is taken.
type Command struct {
	Guard   mtrudd.Node
	Action  int
	Reward  float64
	Updates []Update
}

// Model is the result of a Builder. Relation is the numeric transition
// relation used to build a sparse matrix, and Transitions is the underlying
// Boolean relation over present and next variables, used to compute the
// reachable states.
type Model struct {
	Kind        Kind
	Layout      *Layout
	Relation    sparse.Relation
	Transitions mtrudd.Relation
	Initial     mtrudd.Node
	Labels      map[string]mtrudd.Node
}

// Reachable returns the set of states reachable from the initial states.
func (m *Model) Reachable() (mtrudd.Node, error) {
	b := m.Layout.Manager()
	res := b.Reachable(m.Initial, m.Transitions)
	if res == nil {
		return nil, errors.Wrap(b.Err(), "computing reachable states")
	}
	return res, nil
}

// Label returns the set of states with the given label.
func (m *Model) Label(name string) (mtrudd.Node, error) {
	res, ok := m.Labels[name]
	if !ok {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "unknown label %q", name)
	}
	return res, nil
}

// Builder accumulates the commands of a model. Each command is given a slot,
// that is a valuation of the nondeterministic variables: the first slot where
// its guard does not overlap with the guards of the commands already in the
// slot. In Markov chains, all commands share slot 0 and their outcomes are
// summed.
type Builder struct {
	layout   *Layout
	kind     Kind
	commands []Command
	slot     []int
	guards   []mtrudd.Node // union of the guards of each slot
	initial  mtrudd.Node
	labels   map[string]mtrudd.Node
	log      logrus.FieldLogger
}

// NewBuilder returns an empty builder for a model of the given kind.
func NewBuilder(l *Layout, kind Kind) (*Builder, error) {
	if l == nil || !kind.valid() {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "builder for a model of kind %q", kind)
	}
	return &Builder{
		layout: l,
		kind:   kind,
		labels: make(map[string]mtrudd.Node),
		log:    logrus.StandardLogger(),
	}, nil
}

// SetLogger sets the logger used to report statistics on the model.
func (b *Builder) SetLogger(log logrus.FieldLogger) {
	b.log = log
}

// SetInitial sets the initial states of the model.
func (b *Builder) SetInitial(init mtrudd.Node) {
	b.initial = init
}

// Label associates a name with a set of states.
func (b *Builder) Label(name string, states mtrudd.Node) {
	b.labels[name] = states
}

// Add adds a command to the model and returns its slot.
func (b *Builder) Add(c Command) (int, error) {
	m := b.layout.Manager()
	if c.Guard == nil || m.IsNumeric(c.Guard) {
		return -1, errors.Wrap(mtrudd.ErrInvalidArgument, "the guard of a command must be a Boolean diagram")
	}
	if len(c.Updates) == 0 {
		return -1, errors.Wrap(mtrudd.ErrInvalidArgument, "command without updates")
	}
	for _, u := range c.Updates {
		if !(u.Prob > 0) || math.IsInf(u.Prob, 0) || u.Next == nil {
			return -1, errors.Wrapf(mtrudd.ErrInvalidArgument, "wrong update with probability %g", u.Prob)
		}
	}
	if c.Action < 0 {
		return -1, errors.Wrapf(mtrudd.ErrInvalidArgument, "negative action %d", c.Action)
	}
	slot := 0
	if b.kind == MDP {
		for slot < len(b.guards) && !m.Equal(m.And(b.guards[slot], c.Guard), m.False()) {
			slot++
		}
		if slot >= b.layout.Slots() {
			return -1, errors.Wrapf(mtrudd.ErrInvalidArgument, "more than %d overlapping commands", b.layout.Slots())
		}
	}
	if slot == len(b.guards) {
		b.guards = append(b.guards, c.Guard)
	} else {
		b.guards[slot] = m.Or(b.guards[slot], c.Guard)
	}
	b.commands = append(b.commands, c)
	b.slot = append(b.slot, slot)
	return slot, nil
}

// Build returns the symbolic model defined by the commands.
func (b *Builder) Build() (*Model, error) {
	l := b.layout
	m := l.Manager()
	if b.initial == nil {
		return nil, errors.Wrap(mtrudd.ErrInvalidArgument, "no initial states")
	}
	trans := m.Zero()
	actions := m.Zero()
	rewards := m.Zero()
	hasrewards := false
	for k, c := range b.commands {
		choice := m.And(l.Slot(b.slot[k]), c.Guard)
		for _, u := range c.Updates {
			t := m.Times(m.ToADD(m.And(choice, u.Next)), m.Constant(u.Prob))
			trans = m.Plus(trans, t)
		}
		if c.Action != 0 {
			actions = m.Plus(actions, m.Times(m.ToADD(choice), m.Constant(float64(c.Action))))
		}
		if c.Reward != 0 {
			hasrewards = true
			rewards = m.Plus(rewards, m.Times(m.ToADD(choice), m.Constant(c.Reward)))
		}
	}
	support := m.NonZero(trans)
	if len(l.Nondet()) > 0 {
		support = m.Exist(support, m.Makeset(l.Nondet()))
	}
	if m.Errored() {
		return nil, errors.Wrap(m.Err(), "building the transition relation")
	}
	res := &Model{
		Kind:   b.kind,
		Layout: l,
		Relation: sparse.Relation{
			Trans:  trans,
			Rows:   l.Present(),
			Cols:   l.Next(),
			Nondet: l.Nondet(),
		},
		Transitions: l.Image(support),
		Initial:     b.initial,
		Labels:      b.labels,
	}
	if b.kind == MDP {
		res.Relation.Actions = actions
	}
	if hasrewards {
		res.Relation.Rewards = rewards
	}
	b.log.WithFields(logrus.Fields{
		"kind":     b.kind,
		"commands": len(b.commands),
		"slots":    len(b.guards),
		"nodes":    m.Nodecount(trans),
	}).Debug("model built")
	return res, nil
}
