// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

// SetVarnum sets the number of variables. It may be called more than once,
// but only to increase the number of variables. Existing diagrams are not
// modified, since variable i is always at level i.
func (b *Manager) SetVarnum(num int) error {
	if int32(num) < b.varnum {
		b.seterror(ErrInvalidArgument, "cannot decrease the number of variables (%d to %d)", b.varnum, num)
		return b.error
	}
	return b.setVarnum(num)
}

// ExtVarnum extends the current number of allocated variables with num extra
// variables.
func (b *Manager) ExtVarnum(num int) error {
	if (num < 0) || (num > int(_MAXVAR)) {
		b.seterror(ErrInvalidArgument, "bad choice of value (%d) when extending varnum in ExtVarnum", num)
		return b.error
	}
	return b.SetVarnum(int(b.varnum) + num)
}

// setVarnum grows the list of variables used for Ithvar and NIthvar up to num.
func (b *Manager) setVarnum(num int) error {
	inum := int32(num)
	if (num < 0) || (inum >= _LEAFLEVEL) {
		b.seterror(ErrInvalidArgument, "bad number of variable (%d) in setVarnum", num)
		return b.error
	}
	if inum == b.varnum {
		return nil
	}
	b.initref()
	for k := b.varnum; k < inum; k++ {
		v0 := b.makenode(k, falseEdge, trueEdge)
		if v0 == nilEdge {
			b.seterror(ErrOutOfMemory, "cannot allocate new variable %d in setVarnum", k)
			return b.error
		}
		b.nodes[v0.index()].refcou = _MAXREFCOUNT
		b.varset = append(b.varset, [2]Edge{v0, v0 ^ 1})
	}
	// We also need to resize the quantification cache
	quantset := make([]int32, inum)
	copy(quantset, b.quantset)
	b.quantset = quantset
	b.log.WithField("varnum", num).Debug("set varnum")
	b.varnum = inum
	return nil
}
