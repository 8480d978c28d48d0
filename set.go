// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

// And returns the logical 'and' of a sequence of nodes.
func (b *Manager) And(n ...Node) Node {
	if len(n) == 1 {
		return n[0]
	}
	if len(n) == 0 {
		return b.True()
	}
	return b.Apply(n[0], b.And(n[1:]...), OPand)
}

// Or returns the logical 'or' of a sequence of nodes.
func (b *Manager) Or(n ...Node) Node {
	if len(n) == 1 {
		return n[0]
	}
	if len(n) == 0 {
		return b.False()
	}
	return b.Apply(n[0], b.Or(n[1:]...), OPor)
}

// Imp returns the logical 'implication' between two diagrams.
func (b *Manager) Imp(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPimp)
}

// Equiv returns the logical 'bi-implication' between two diagrams.
func (b *Manager) Equiv(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPbiimp)
}

// Equal tests equivalence between nodes. Since diagrams are canonical, this
// is a constant time operation.
func (b *Manager) Equal(n1, n2 Node) bool {
	if n1 == n2 {
		return true
	}
	if n1 == nil || n2 == nil {
		return false
	}
	return n1.e == n2.e
}

// AndExist returns the "relational composition" of two nodes with respect to
// varset, meaning the result of (Exists varset . n1 & n2).
func (b *Manager) AndExist(varset, n1, n2 Node) Node {
	return b.AppEx(n1, n2, OPand, varset)
}

// Plus returns the sum of a sequence of diagrams.
func (b *Manager) Plus(n ...Node) Node {
	if len(n) == 0 {
		return b.Zero()
	}
	res := n[0]
	for _, v := range n[1:] {
		res = b.Apply(res, v, OPplus)
	}
	return res
}

// Times returns the product of two diagrams. This is how a Boolean filter is
// applied to a numeric diagram.
func (b *Manager) Times(n1, n2 Node) Node {
	return b.Apply(n1, n2, OPtimes)
}

// SumAbstract returns the sum abstraction of n over the variables in varset.
func (b *Manager) SumAbstract(n, varset Node) Node {
	return b.Quantify(n, varset, OPplus)
}

// MaxAbstract returns the max abstraction of n over the variables in varset.
func (b *Manager) MaxAbstract(n, varset Node) Node {
	return b.Quantify(n, varset, OPmax)
}

// MinAbstract returns the min abstraction of n over the variables in varset.
func (b *Manager) MinAbstract(n, varset Node) Node {
	return b.Quantify(n, varset, OPmin)
}

// MatrixMultiply returns the product of the numeric matrix a (with rows in
// rowvars and columns in sumvars) and the matrix or vector c (with rows in
// sumvars), summing over the variables in the cube sumvars.
func (b *Manager) MatrixMultiply(a, c, sumvars Node) Node {
	return b.SumAbstract(b.Times(a, c), sumvars)
}
