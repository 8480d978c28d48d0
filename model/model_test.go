// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/odd"
	"github.com/dalzilio/mtrudd/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manager(t *testing.T) *mtrudd.Manager {
	bdd, err := mtrudd.New(0, mtrudd.Nodesize(10000))
	require.NoError(t, err)
	return bdd
}

func TestLayout(t *testing.T) {
	bdd := manager(t)
	l, err := NewLayout(bdd, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, l.Nondet())
	assert.Equal(t, []int{1, 3}, l.Present())
	assert.Equal(t, []int{2, 4}, l.Next())
	assert.Equal(t, 2, l.Slots())
	assert.Equal(t, 5, bdd.Varnum())

	// state 2 is 10 in binary
	v, err := bdd.Eval(l.State(2), []bool{false, true, false, false, false})
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	v, err = bdd.Eval(l.State(2), []bool{false, false, false, true, false})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	assert.Nil(t, l.State(4))
	assert.Nil(t, l.Slot(2))

	s, err := l.Decode([]bool{true, false})
	require.NoError(t, err)
	assert.Equal(t, 2, s)
	_, err = l.Decode([]bool{true})
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument))

	_, err = NewLayout(bdd, 0, 1)
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument))
}

func TestBuilder(t *testing.T) {
	bdd := manager(t)
	l, err := NewLayout(bdd, 2, 1)
	require.NoError(t, err)
	b, err := NewBuilder(l, MDP)
	require.NoError(t, err)
	slot, err := b.Add(Command{Guard: l.State(0), Action: 1, Updates: []Update{{Prob: 1, Next: l.NextState(1)}}})
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	slot, err = b.Add(Command{Guard: l.State(0), Action: 2, Updates: []Update{{Prob: 1, Next: l.Same()}}})
	require.NoError(t, err)
	assert.Equal(t, 1, slot)
	slot, err = b.Add(Command{Guard: l.State(1), Updates: []Update{{Prob: 1, Next: l.Same()}}})
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	_, err = b.Add(Command{Guard: l.State(0), Updates: []Update{{Prob: 1, Next: l.Same()}}})
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument))
	b.SetInitial(l.State(0))
	b.Label("goal", l.State(1))

	mod, err := b.Build()
	require.NoError(t, err)
	reach, err := mod.Reachable()
	require.NoError(t, err)
	goal, err := mod.Label("goal")
	require.NoError(t, err)
	assert.True(t, bdd.Equal(goal, l.State(1)))
	_, err = mod.Label("none")
	assert.Error(t, err)

	o, err := odd.Build(bdd, reach, l.Present())
	require.NoError(t, err)
	assert.Equal(t, 2, o.Size())
	m, err := sparse.Build(mod.Relation, o)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, m.StateStart)
	assert.Equal(t, []int{1, 0, 1}, m.Successor)
	assert.Equal(t, []float64{1, 1, 1}, m.Prob)
	assert.Equal(t, []int{1, 2, 0}, m.Action)
	assert.Nil(t, m.Reward)
}

func TestBuilderErrors(t *testing.T) {
	bdd := manager(t)
	l, err := NewLayout(bdd, 1, 0)
	require.NoError(t, err)
	_, err = NewBuilder(l, "pta")
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument))
	b, err := NewBuilder(l, DTMC)
	require.NoError(t, err)
	_, err = b.Add(Command{Guard: l.State(0)})
	assert.Error(t, err)
	_, err = b.Add(Command{Guard: l.State(0), Updates: []Update{{Prob: 0, Next: l.Same()}}})
	assert.Error(t, err)
	_, err = b.Add(Command{Guard: bdd.Constant(2), Updates: []Update{{Prob: 1, Next: l.Same()}}})
	assert.Error(t, err)
	_, err = b.Build()
	assert.True(t, errors.Is(err, mtrudd.ErrInvalidArgument))
}

const mdp = `
kind: mdp
states: 3
initial: [0]
labels:
  goal: [2]
choices:
- from: 0
  action: 1
  to: [{state: 1, prob: 0.5}, {state: 2, prob: 0.5}]
- from: 0
  action: 2
  reward: 1
  to: [{state: 2, prob: 1}]
- from: 1
  to: [{state: 1, prob: 1}]
- from: 2
  to: [{state: 2, prob: 1}]
`

func TestExplicit(t *testing.T) {
	e, err := Load(strings.NewReader(mdp))
	require.NoError(t, err)
	assert.Equal(t, MDP, e.Kind)
	assert.Equal(t, 3, e.States)
	require.Len(t, e.Choices, 4)
	assert.Equal(t, 1.0, e.Choices[1].Reward)

	bdd := manager(t)
	mod, err := e.Build(bdd)
	require.NoError(t, err)
	assert.Len(t, mod.Layout.Present(), 2)
	assert.Len(t, mod.Layout.Nondet(), 1)
	reach, err := mod.Reachable()
	require.NoError(t, err)
	o, err := odd.Build(bdd, reach, mod.Layout.Present())
	require.NoError(t, err)
	assert.Equal(t, 3, o.Size())
	m, err := sparse.Build(mod.Relation, o)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3, 4}, m.StateStart)
	assert.Equal(t, []int{0, 2, 3, 4, 5}, m.ChoiceStart)
	assert.Equal(t, []int{1, 2, 2, 1, 2}, m.Successor)
	assert.Equal(t, []float64{0.5, 0.5, 1, 1, 1}, m.Prob)
	assert.Equal(t, []int{1, 2, 0, 0}, m.Action)
	assert.Equal(t, []float64{0, 1, 0, 0}, m.Reward)

	data, err := e.Marshal()
	require.NoError(t, err)
	again, err := Load(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, e, again)
}

func TestExplicitCTMC(t *testing.T) {
	e := &Explicit{
		Kind:    CTMC,
		States:  2,
		Initial: []int{0},
		Choices: []Choice{{From: 0, To: []Target{{State: 1, Prob: 3}}}},
	}
	bdd := manager(t)
	mod, err := e.Build(bdd)
	require.NoError(t, err)
	assert.Empty(t, mod.Layout.Nondet())
	reach, err := mod.Reachable()
	require.NoError(t, err)
	o, err := odd.Build(bdd, reach, mod.Layout.Present())
	require.NoError(t, err)
	m, err := sparse.Build(mod.Relation, o, sparse.Rates())
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.MaxExitRate())
	assert.True(t, m.IsDeterministic())
}

func TestExplicitErrors(t *testing.T) {
	tests := []struct {
		name string
		e    Explicit
	}{
		{"kind", Explicit{Kind: "pta", States: 1, Initial: []int{0}}},
		{"states", Explicit{Kind: DTMC, States: 0, Initial: []int{0}}},
		{"initial", Explicit{Kind: DTMC, States: 1}},
		{"range", Explicit{Kind: DTMC, States: 1, Initial: []int{1}}},
		{"label", Explicit{Kind: DTMC, States: 1, Initial: []int{0}, Labels: map[string][]int{"a": {3}}}},
		{"probability", Explicit{Kind: DTMC, States: 1, Initial: []int{0}, Choices: []Choice{{From: 0, To: []Target{{State: 0, Prob: -1}}}}}},
		{"successors", Explicit{Kind: DTMC, States: 1, Initial: []int{0}, Choices: []Choice{{From: 0}}}},
		{"choices", Explicit{Kind: DTMC, States: 1, Initial: []int{0}, Choices: []Choice{
			{From: 0, To: []Target{{State: 0, Prob: 1}}},
			{From: 0, To: []Target{{State: 0, Prob: 1}}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.e.Validate(), mtrudd.ErrInvalidArgument))
		})
	}
	_, err := Load(strings.NewReader("kind: [1, 2"))
	assert.Error(t, err)
}
