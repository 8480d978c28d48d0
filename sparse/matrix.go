// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sparse

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/dalzilio/mtrudd"
	"github.com/pkg/errors"
)

// DefaultTolerance is the tolerance used when checking that the
// probabilities of a choice sum to at most one.
const DefaultTolerance = 1e-6

// Matrix is a row compressed transition matrix with nondeterministic choices.
// The choices of state s are the indices in [StateStart[s], StateStart[s+1]),
// the successors of choice c are the entries Successor[k] and Prob[k] for k
// in [ChoiceStart[c], ChoiceStart[c+1]), sorted by increasing state index.
// The groups of state s are the indices in [StateGroup[s], StateGroup[s+1])
// and group g contains the choices in [GroupStart[g], GroupStart[g+1]), which
// all have the same action.
type Matrix struct {
	StateStart  []int
	ChoiceStart []int
	Successor   []int
	Prob        []float64
	Action      []int     // Action of each choice
	Slot        []int     // Position of the choice in the input (nondeterministic variables or explicit list)
	GroupStart  []int     // Boundaries of action groups, over choices
	StateGroup  []int     // Boundaries of the groups of each state
	Reward      []float64 // Reward of each choice, nil if there are no rewards
	Rates       bool      // True if entries are rates instead of probabilities
}

// NumStates returns the number of states.
func (m *Matrix) NumStates() int {
	return len(m.StateStart) - 1
}

// NumChoices returns the total number of choices.
func (m *Matrix) NumChoices() int {
	return len(m.ChoiceStart) - 1
}

// NumTransitions returns the number of non-zero entries.
func (m *Matrix) NumTransitions() int {
	return len(m.Successor)
}

// Choices returns the range of choices of state s.
func (m *Matrix) Choices(s int) (int, int) {
	return m.StateStart[s], m.StateStart[s+1]
}

// Groups returns the range of action groups of state s.
func (m *Matrix) Groups(s int) (int, int) {
	return m.StateGroup[s], m.StateGroup[s+1]
}

// GroupChoices returns the range of choices in group g.
func (m *Matrix) GroupChoices(g int) (int, int) {
	return m.GroupStart[g], m.GroupStart[g+1]
}

// Successors returns the successors of choice c and their probabilities.
// The slices are shared with the matrix.
func (m *Matrix) Successors(c int) ([]int, []float64) {
	lo, hi := m.ChoiceStart[c], m.ChoiceStart[c+1]
	return m.Successor[lo:hi], m.Prob[lo:hi]
}

// ChoiceReward returns the reward of choice c, or 0 if the matrix has no
// rewards.
func (m *Matrix) ChoiceReward(c int) float64 {
	if m.Reward == nil {
		return 0
	}
	return m.Reward[c]
}

// IsDeterministic returns true if every state has at most one choice, that
// is if m is a Markov chain.
func (m *Matrix) IsDeterministic() bool {
	for s := 0; s < m.NumStates(); s++ {
		if m.StateStart[s+1]-m.StateStart[s] > 1 {
			return false
		}
	}
	return true
}

// Validate checks the consistency of the arrays of m. It returns an error
// wrapping ErrSuperstochastic if the probabilities of a choice sum to more
// than 1 + DefaultTolerance, and ErrDataInvariant for other problems.
func (m *Matrix) Validate() error {
	return m.validate(DefaultTolerance)
}

func (m *Matrix) validate(tolerance float64) error {
	if len(m.StateStart) == 0 || len(m.ChoiceStart) == 0 || len(m.GroupStart) == 0 {
		return errors.Wrap(ErrDataInvariant, "empty index arrays")
	}
	n, nc, nnz := m.NumStates(), m.NumChoices(), len(m.Successor)
	if len(m.StateGroup) != n+1 {
		return errors.Wrapf(ErrDataInvariant, "StateGroup has size %d (expected %d)", len(m.StateGroup), n+1)
	}
	if len(m.Prob) != nnz {
		return errors.Wrapf(ErrDataInvariant, "Prob has size %d (expected %d)", len(m.Prob), nnz)
	}
	if len(m.Action) != nc || len(m.Slot) != nc {
		return errors.Wrapf(ErrDataInvariant, "Action or Slot do not have size %d", nc)
	}
	if m.Reward != nil && len(m.Reward) != nc {
		return errors.Wrapf(ErrDataInvariant, "Reward has size %d (expected %d)", len(m.Reward), nc)
	}
	if err := monotone("StateStart", m.StateStart, nc); err != nil {
		return err
	}
	if err := monotone("ChoiceStart", m.ChoiceStart, nnz); err != nil {
		return err
	}
	if err := monotone("GroupStart", m.GroupStart, nc); err != nil {
		return err
	}
	if err := monotone("StateGroup", m.StateGroup, len(m.GroupStart)-1); err != nil {
		return err
	}
	for s := 0; s < n; s++ {
		glo, ghi := m.Groups(s)
		if m.GroupStart[glo] != m.StateStart[s] || m.GroupStart[ghi] != m.StateStart[s+1] {
			return errors.Wrapf(ErrDataInvariant, "groups of state %d do not cover its choices", s)
		}
		for g := glo; g < ghi; g++ {
			lo, hi := m.GroupChoices(g)
			if lo == hi {
				return errors.Wrapf(ErrDataInvariant, "empty group %d in state %d", g, s)
			}
			for c := lo + 1; c < hi; c++ {
				if m.Action[c] != m.Action[lo] {
					return errors.Wrapf(ErrDataInvariant, "group %d of state %d mixes actions %d and %d", g, s, m.Action[lo], m.Action[c])
				}
			}
			if g > glo && m.Action[lo] <= m.Action[m.GroupStart[g-1]] {
				return errors.Wrapf(ErrDataInvariant, "groups of state %d are not sorted by action", s)
			}
		}
	}
	for c := 0; c < nc; c++ {
		lo, hi := m.ChoiceStart[c], m.ChoiceStart[c+1]
		if lo == hi {
			return errors.Wrapf(ErrDataInvariant, "choice %d has no successors", c)
		}
		sum := 0.0
		for k := lo; k < hi; k++ {
			if m.Successor[k] < 0 || m.Successor[k] >= n {
				return errors.Wrapf(ErrDataInvariant, "successor %d of choice %d out of range", m.Successor[k], c)
			}
			if k > lo && m.Successor[k] <= m.Successor[k-1] {
				return errors.Wrapf(ErrDataInvariant, "successors of choice %d are not sorted", c)
			}
			if !(m.Prob[k] > 0) || math.IsInf(m.Prob[k], 0) {
				return errors.Wrapf(ErrDataInvariant, "entry %g in choice %d", m.Prob[k], c)
			}
			sum += m.Prob[k]
		}
		if !m.Rates && sum > 1+tolerance {
			return errors.Wrapf(ErrSuperstochastic, "choice %d sums to %g", c, sum)
		}
	}
	return nil
}

func monotone(name string, a []int, last int) error {
	if a[0] != 0 || a[len(a)-1] != last {
		return errors.Wrapf(ErrDataInvariant, "%s must range from 0 to %d", name, last)
	}
	for k := 1; k < len(a); k++ {
		if a[k] < a[k-1] {
			return errors.Wrapf(ErrDataInvariant, "%s is not monotone at index %d", name, k)
		}
	}
	return nil
}

// Predecessors stores the transposed graph of a Matrix: for each state t, the
// entries in [Start[t], Start[t+1]) give the states (From) and choices
// (Choice) with a transition to t.
type Predecessors struct {
	Start  []int
	From   []int
	Choice []int
}

// Of returns the predecessors of t and the corresponding choices. The slices
// are shared with p.
func (p *Predecessors) Of(t int) ([]int, []int) {
	return p.From[p.Start[t]:p.Start[t+1]], p.Choice[p.Start[t]:p.Start[t+1]]
}

// Transpose returns the predecessor lists of m. A pair (s, c) appears once
// for each successor of choice c, in increasing order of choices.
func (m *Matrix) Transpose() *Predecessors {
	n := m.NumStates()
	p := &Predecessors{
		Start:  make([]int, n+1),
		From:   make([]int, len(m.Successor)),
		Choice: make([]int, len(m.Successor)),
	}
	for _, t := range m.Successor {
		p.Start[t+1]++
	}
	for t := 0; t < n; t++ {
		p.Start[t+1] += p.Start[t]
	}
	next := append([]int(nil), p.Start[:n]...)
	for s := 0; s < n; s++ {
		for c := m.StateStart[s]; c < m.StateStart[s+1]; c++ {
			for k := m.ChoiceStart[c]; k < m.ChoiceStart[c+1]; k++ {
				t := m.Successor[k]
				p.From[next[t]] = s
				p.Choice[next[t]] = c
				next[t]++
			}
		}
	}
	return p
}

// ExitRate returns the sum of the entries of choice c.
func (m *Matrix) ExitRate(c int) float64 {
	sum := 0.0
	for k := m.ChoiceStart[c]; k < m.ChoiceStart[c+1]; k++ {
		sum += m.Prob[k]
	}
	return sum
}

// MaxExitRate returns the maximal exit rate of the choices of m.
func (m *Matrix) MaxExitRate() float64 {
	res := 0.0
	for c := 0; c < m.NumChoices(); c++ {
		res = math.Max(res, m.ExitRate(c))
	}
	return res
}

// Uniformize returns the discrete time matrix obtained by uniformization of
// the rate matrix m with rate q, where each choice c moves to t with
// probability rate(t)/q and stays in place with probability 1 - E(c)/q. The
// rate q must be at least MaxExitRate(). States without choices get a self
// loop with probability one.
func (m *Matrix) Uniformize(q float64) (*Matrix, error) {
	if !m.Rates {
		return nil, errors.Wrap(mtrudd.ErrInvalidArgument, "uniformization of a probability matrix")
	}
	if emax := m.MaxExitRate(); !(q > 0) || q < emax {
		return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "uniformization rate %g below the maximal exit rate %g", q, emax)
	}
	rows := make([][]Choice, m.NumStates())
	for s := range rows {
		lo, hi := m.Choices(s)
		if lo == hi {
			rows[s] = []Choice{{Entries: []Entry{{State: s, Prob: 1}}}}
			continue
		}
		for c := lo; c < hi; c++ {
			ch := Choice{Action: m.Action[c], Reward: m.ChoiceReward(c)}
			stay := 1 - m.ExitRate(c)/q
			succ, prob := m.Successors(c)
			for k, t := range succ {
				p := prob[k] / q
				if t == s {
					p += stay
					stay = 0
				}
				ch.Entries = append(ch.Entries, Entry{State: t, Prob: p})
			}
			if stay > 0 {
				ch.Entries = append(ch.Entries, Entry{State: s, Prob: stay})
			}
			rows[s] = append(rows[s], ch)
		}
	}
	res, err := FromExplicit(rows)
	if err != nil {
		return nil, err
	}
	if m.Reward == nil {
		res.Reward = nil
	}
	return res, nil
}

// Entry is a successor of a choice, in an explicit matrix.
type Entry struct {
	State int
	Prob  float64
}

// Choice is a nondeterministic choice of an explicit matrix.
type Choice struct {
	Action  int
	Reward  float64
	Entries []Entry
}

// FromExplicit returns the matrix with choices rows[s] for each state s.
// Entries with the same successor are summed, entries with probability 0 are
// dropped and the choices of each state are sorted by action, keeping their
// relative order (recorded in Slot). A matrix of rates can be obtained by
// passing option Rates.
func FromExplicit(rows [][]Choice, options ...Option) (*Matrix, error) {
	opts := DefaultOptions()
	for _, f := range options {
		f(&opts)
	}
	n := len(rows)
	b := newassembler(n)
	for s, choices := range rows {
		for slot, ch := range choices {
			entries := append([]Entry(nil), ch.Entries...)
			sort.SliceStable(entries, func(i, j int) bool { return entries[i].State < entries[j].State })
			merged := entries[:0]
			for _, e := range entries {
				if e.State < 0 || e.State >= n {
					return nil, errors.Wrapf(mtrudd.ErrInvalidArgument, "successor %d of state %d out of range", e.State, s)
				}
				if e.Prob == 0 {
					continue
				}
				if len(merged) > 0 && merged[len(merged)-1].State == e.State {
					merged[len(merged)-1].Prob += e.Prob
					continue
				}
				merged = append(merged, e)
			}
			if len(merged) == 0 {
				continue
			}
			rec := b.add(s, slot)
			rec.action = ch.Action
			rec.reward = ch.Reward
			rec.entries = merged
			rec.count = len(merged)
			if ch.Reward != 0 {
				b.rewards = true
			}
		}
	}
	b.layout()
	for _, recs := range b.states {
		for _, rec := range recs {
			for _, e := range rec.entries {
				if err := b.fill(rec, e.State, e.Prob); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := b.check(); err != nil {
		return nil, err
	}
	b.mat.Rates = opts.Rates
	if err := b.mat.validate(opts.Tolerance); err != nil {
		return nil, err
	}
	return b.mat, nil
}

// Print outputs a textual description of m, with one line per choice.
func (m *Matrix) Print(w io.Writer) {
	for s := 0; s < m.NumStates(); s++ {
		lo, hi := m.Choices(s)
		if lo == hi {
			fmt.Fprintf(w, "%d: deadlock\n", s)
		}
		for c := lo; c < hi; c++ {
			fmt.Fprintf(w, "%d: [a%d]", s, m.Action[c])
			if m.Reward != nil {
				fmt.Fprintf(w, " {%g}", m.Reward[c])
			}
			succ, prob := m.Successors(c)
			for k := range succ {
				fmt.Fprintf(w, " %g:%d", prob[k], succ[k])
			}
			fmt.Fprintln(w)
		}
	}
}
