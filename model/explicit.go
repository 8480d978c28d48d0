// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package model

import (
	"io"
	"math/bits"
	"os"
	"sort"

	"github.com/dalzilio/mtrudd"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// Explicit is a model given by the list of its choices. It can be loaded from
// a YAML (or JSON) description such as:
//
//	kind: mdp
//	states: 3
//	initial: [0]
//	labels:
//	  goal: [2]
//	choices:
//	- from: 0
//	  action: 1
//	  to: [{state: 1, prob: 0.5}, {state: 2, prob: 0.5}]
//	- from: 0
//	  action: 2
//	  reward: 1
//	  to: [{state: 2, prob: 1}]
//
// For a CTMC, prob is a rate. For a DTMC or a CTMC, each state must have at
// most one choice.
type Explicit struct {
	Kind    Kind             `json:"kind"`
	States  int              `json:"states"`
	Initial []int            `json:"initial"`
	Labels  map[string][]int `json:"labels,omitempty"`
	Choices []Choice         `json:"choices"`
}

// Choice is a choice of state From in an explicit model.
type Choice struct {
	From   int      `json:"from"`
	Action int      `json:"action,omitempty"`
	Reward float64  `json:"reward,omitempty"`
	To     []Target `json:"to"`
}

// Target is a successor of a choice, with its probability or rate.
type Target struct {
	State int     `json:"state"`
	Prob  float64 `json:"prob"`
}

// Load reads an explicit model in YAML format.
func Load(r io.Reader) (*Explicit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading model")
	}
	var e Explicit
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "decoding model")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadFile reads an explicit model from a file.
func LoadFile(name string) (*Explicit, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening model %s", name)
	}
	defer f.Close()
	return Load(f)
}

// Marshal returns the YAML description of e.
func (e *Explicit) Marshal() ([]byte, error) {
	return yaml.Marshal(e)
}

// Validate checks that the states used in e are in range and that
// probabilities are positive.
func (e *Explicit) Validate() error {
	if !e.Kind.valid() {
		return errors.Wrapf(mtrudd.ErrInvalidArgument, "unknown kind of model %q", e.Kind)
	}
	if e.States < 1 {
		return errors.Wrapf(mtrudd.ErrInvalidArgument, "model with %d states", e.States)
	}
	check := func(s int, where string) error {
		if s < 0 || s >= e.States {
			return errors.Wrapf(mtrudd.ErrInvalidArgument, "state %d out of range in %s", s, where)
		}
		return nil
	}
	if len(e.Initial) == 0 {
		return errors.Wrap(mtrudd.ErrInvalidArgument, "no initial states")
	}
	for _, s := range e.Initial {
		if err := check(s, "initial states"); err != nil {
			return err
		}
	}
	for name, list := range e.Labels {
		for _, s := range list {
			if err := check(s, "label "+name); err != nil {
				return err
			}
		}
	}
	count := make(map[int]int)
	for _, c := range e.Choices {
		if err := check(c.From, "choices"); err != nil {
			return err
		}
		if len(c.To) == 0 {
			return errors.Wrapf(mtrudd.ErrInvalidArgument, "choice of state %d without successors", c.From)
		}
		for _, t := range c.To {
			if err := check(t.State, "choices"); err != nil {
				return err
			}
			if !(t.Prob > 0) {
				return errors.Wrapf(mtrudd.ErrInvalidArgument, "transition from %d to %d with probability %g", c.From, t.State, t.Prob)
			}
		}
		count[c.From]++
		if e.Kind != MDP && count[c.From] > 1 {
			return errors.Wrapf(mtrudd.ErrInvalidArgument, "state %d has more than one choice in a %s", c.From, e.Kind)
		}
	}
	return nil
}

// width returns the number of bits needed to encode n values.
func width(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Build encodes e in a new layout of manager m and returns the symbolic
// model. States of e are encoded with their number.
func (e *Explicit) Build(m *mtrudd.Manager) (*Model, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	slots := 1
	count := make(map[int]int)
	for _, c := range e.Choices {
		count[c.From]++
		slots = max(slots, count[c.From])
	}
	l, err := NewLayout(m, max(1, width(e.States)), width(slots))
	if err != nil {
		return nil, err
	}
	b, err := NewBuilder(l, e.Kind)
	if err != nil {
		return nil, err
	}
	// choices are added state by state, so that the k-th choice of a state
	// goes in slot k
	order := make([]int, len(e.Choices))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(i, j int) bool { return e.Choices[order[i]].From < e.Choices[order[j]].From })
	for _, k := range order {
		c := e.Choices[k]
		cmd := Command{Guard: l.State(c.From), Action: c.Action, Reward: c.Reward}
		for _, t := range c.To {
			cmd.Updates = append(cmd.Updates, Update{Prob: t.Prob, Next: l.NextState(t.State)})
		}
		if _, err := b.Add(cmd); err != nil {
			return nil, err
		}
	}
	b.SetInitial(l.States(e.Initial...))
	for name, list := range e.Labels {
		b.Label(name, l.States(list...))
	}
	return b.Build()
}
