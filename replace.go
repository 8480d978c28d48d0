// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Replacer is the type of association lists used to replace variables in a
// diagram.
type Replacer interface {
	Replace(int32) (int32, bool)
	Id() int
}

type replacer struct {
	id    int     // unique identifier used for caching intermediate results
	image []int32 // map the level of old variables to the level of new variables
	last  int32   // last index in the Replacer, to speed up computations
}

func (r *replacer) String() string {
	res := fmt.Sprintf("replacer(last: %d)[", r.last)
	first := true
	for k, v := range r.image {
		if k != int(v) {
			if !first {
				res += ", "
			}
			first = false
			res += fmt.Sprintf("%d<-%d", k, v)
		}
	}
	return res + "]"
}

func (r *replacer) Replace(level int32) (int32, bool) {
	if level > r.last {
		return level, false
	}
	return r.image[level], true
}

func (r *replacer) Id() int {
	return r.id
}

// NewReplacer returns a Replacer for substituting variable oldvars[k] with
// newvars[k]. We return an error if the two slices do not have the same length
// or if we find the same index twice in oldvars. All values must be in
// [0..Varnum). The substitution is simultaneous, so it is possible to swap
// two sets of variables, like the present and next state variables of a
// transition relation.
func (b *Manager) NewReplacer(oldvars []int, newvars []int) (Replacer, error) {
	res := &replacer{last: -1}
	if len(oldvars) != len(newvars) {
		return nil, errors.Wrap(ErrInvalidArgument, "unmatched length of slices")
	}
	if b.replaceid == (math.MaxInt32 >> 2) {
		return nil, errors.Wrap(ErrInvalidArgument, "too many replacers created")
	}
	b.replaceid++
	res.id = b.replaceid
	varnum := b.Varnum()
	support := make([]bool, varnum)
	res.image = make([]int32, varnum)
	for k := range res.image {
		res.image[k] = int32(k)
	}
	for k, v := range oldvars {
		if v < 0 || v >= varnum {
			return nil, errors.Wrapf(ErrInvalidArgument, "invalid variable in oldvars (%d)", v)
		}
		if newvars[k] < 0 || newvars[k] >= varnum {
			return nil, errors.Wrapf(ErrInvalidArgument, "invalid variable in newvars (%d)", newvars[k])
		}
		if support[v] {
			return nil, errors.Wrapf(ErrInvalidArgument, "duplicate variable (%d) in oldvars", v)
		}
		support[v] = true
		res.image[v] = int32(newvars[k])
		if int32(v) > res.last {
			res.last = int32(v)
		}
	}
	return res, nil
}

// ************************************************************

// Replace takes a Replacer and computes the result of n after replacing old
// variables with new ones. See type Replacer. It works with Boolean and
// numeric diagrams alike.
func (b *Manager) Replace(n Node, r Replacer) Node {
	if err := b.checkptr(n); err != nil {
		return b.seterror(err, "wrong operand in call to Replace")
	}
	if r == nil {
		return b.seterror(ErrInvalidArgument, "nil replacer in call to Replace")
	}
	b.initref()
	b.pushref(n.e)
	b.replacecache.id = r.Id()
	res := b.replace(n.e, r)
	b.popref(1)
	return b.retnode(res)
}

// Permute is a shorthand for Replace with a replacer built from oldvars and
// newvars.
func (b *Manager) Permute(n Node, oldvars, newvars []int) Node {
	r, err := b.NewReplacer(oldvars, newvars)
	if err != nil {
		return b.seterror(err, "in call to Permute")
	}
	return b.Replace(n, r)
}

// replace rebuilds n bottom-up, using ite to put each renamed variable back at
// its correct level.
func (b *Manager) replace(n Edge, r Replacer) Edge {
	if b.isleaf(n) {
		return n
	}
	if _, ok := r.Replace(b.level(n)); !ok {
		return n
	}
	if res := b.matchreplace(n); res != nilEdge {
		return res
	}
	image, _ := r.Replace(b.level(n))
	if int(image) >= len(b.varset) {
		b.seterror(ErrInvalidArgument, "replacer maps level %d outside the manager (%d)", b.level(n), image)
		return nilEdge
	}
	low := b.pushref(b.replace(b.low(n), r))
	high := b.pushref(b.replace(b.high(n), r))
	if low == nilEdge || high == nilEdge {
		b.popref(2)
		return nilEdge
	}
	res := b.ite(b.varset[image][0], high, low)
	b.popref(2)
	return b.setreplace(n, res)
}
