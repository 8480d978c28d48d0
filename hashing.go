// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import "math/big"

// Hash functions

func _TRIPLE(a, b, c, len int) int {
	return int(_PAIR64(uint64(c), _PAIR(a, b, len), uint64(len)))
}

// _PAIR is a mapping function that maps (bijectively) a pair of integer (a, b)
// into a unique integer. It is therefore a perfect hash: no collisions
func _PAIR(a, b, len int) uint64 {
	return (((uint64(a+b) * uint64(a+b+1)) / 2) + uint64(a)) % uint64(len)
}

func _PAIR64(a, b, len uint64) uint64 {
	return (((((a + b) % len) * ((a + b + 1) % len)) / 2) + a) % len
}

// ************************************************************

// The hash function for nodes is #(level, low, high)

func (b *Manager) ptrhash(n int32) int32 {
	return b.nodehash(b.nodes[n].level&_LEVELMASK, b.nodes[n].low, b.nodes[n].high)
}

func (b *Manager) nodehash(level int32, low, high Edge) int32 {
	return int32(_TRIPLE(int(level), int(low), int(high), len(b.nodes)))
}

// ************************************************************

// The hash function for Apply is #(left, right, applycache.op).

func (b *Manager) matchapply(left, right Edge) Edge {
	entry := b.applycache.table[_TRIPLE(int(left), int(right), int(b.applycache.op), len(b.applycache.table))]
	if entry.a == left && entry.b == right && entry.c == int(b.applycache.op) {
		b.opHit++
		return entry.res
	}
	b.opMiss++
	return nilEdge
}

func (b *Manager) setapply(left, right, res Edge) Edge {
	if res == nilEdge {
		return nilEdge
	}
	b.applycache.table[_TRIPLE(int(left), int(right), int(b.applycache.op), len(b.applycache.table))] = cacheData{
		a:   left,
		b:   right,
		c:   int(b.applycache.op),
		res: res,
	}
	return res
}

// ************************************************************

// The hash function for ITE is #(f,g,h).

func (b *Manager) matchite(f, g, h Edge) Edge {
	entry := b.itecache.table[_TRIPLE(int(f), int(g), int(h), len(b.itecache.table))]
	if entry.a == f && entry.b == g && entry.c == int(h) {
		b.opHit++
		return entry.res
	}
	b.opMiss++
	return nilEdge
}

func (b *Manager) setite(f, g, h, res Edge) Edge {
	if res == nilEdge {
		return nilEdge
	}
	b.itecache.table[_TRIPLE(int(f), int(g), int(h), len(b.itecache.table))] = cacheData{
		a:   f,
		b:   g,
		c:   int(h),
		res: res,
	}
	return res
}

// ************************************************************

// The hash function for quantification is simply n.

func (b *Manager) matchquant(n Edge) Edge {
	entry := b.quantcache.table[int(n)%len(b.quantcache.table)]
	if entry.a == n && entry.c == b.quantcache.id {
		b.opHit++
		return entry.res
	}
	b.opMiss++
	return nilEdge
}

func (b *Manager) setquant(n Edge, res Edge) Edge {
	if res == nilEdge {
		return nilEdge
	}
	b.quantcache.table[int(n)%len(b.quantcache.table)] = cacheData{
		a:   n,
		c:   b.quantcache.id,
		res: res,
	}
	return res
}

// ************************************************************

// The hash function for AppEx is #(left, right)

func (b *Manager) matchappex(left, right Edge) Edge {
	entry := b.appexcache.table[int(_PAIR(int(left), int(right), len(b.appexcache.table)))]
	if entry.a == left && entry.b == right && entry.c == b.appexcache.id {
		b.opHit++
		return entry.res
	}
	b.opMiss++
	return nilEdge
}

func (b *Manager) setappex(left, right, res Edge) Edge {
	if res == nilEdge {
		return nilEdge
	}
	b.appexcache.table[int(_PAIR(int(left), int(right), len(b.appexcache.table)))] = cacheData{
		a:   left,
		b:   right,
		c:   b.appexcache.id,
		res: res,
	}
	return res
}

// ************************************************************

// The hash function for operation Replace(n) is simply n.

func (b *Manager) matchreplace(n Edge) Edge {
	entry := b.replacecache.table[int(n)%len(b.replacecache.table)]
	if entry.a == n && entry.c == b.replacecache.id {
		b.opHit++
		return entry.res
	}
	b.opMiss++
	return nilEdge
}

func (b *Manager) setreplace(n Edge, res Edge) Edge {
	if res == nilEdge {
		return nilEdge
	}
	b.replacecache.table[int(n)%len(b.replacecache.table)] = cacheData{
		a:   n,
		c:   b.replacecache.id,
		res: res,
	}
	return res
}

// ************************************************************

// The hash function for the unary conversions (ToADD, Threshold, ...) is
// simply n.

func (b *Manager) matchmisc(n Edge) Edge {
	entry := b.misccache.table[int(n)%len(b.misccache.table)]
	if entry.a == n && entry.c == b.misccache.id {
		b.opHit++
		return entry.res
	}
	b.opMiss++
	return nilEdge
}

func (b *Manager) setmisc(n Edge, res Edge) Edge {
	if res == nilEdge {
		return nilEdge
	}
	b.misccache.table[int(n)%len(b.misccache.table)] = cacheData{
		a:   n,
		c:   b.misccache.id,
		res: res,
	}
	return res
}

// ************************************************************

// functions for Prime number calculations; the size of the node table and of
// the caches is always a prime number.

func hasFactor(src int, n int) bool {
	if (src != n) && (src%n == 0) {
		return true
	}
	return false
}

func hasEasyFactors(src int) bool {
	return hasFactor(src, 3) || hasFactor(src, 5) || hasFactor(src, 7) || hasFactor(src, 11) || hasFactor(src, 13)
}

func primeGte(src int) int {
	if src%2 == 0 {
		src++
	}
	for {
		if hasEasyFactors(src) {
			src = src + 2
			continue
		}
		// ProbablyPrime is 100% accurate for inputs less than 2⁶⁴.
		if big.NewInt(int64(src)).ProbablyPrime(0) {
			return src
		}
		src = src + 2
	}
}

func primeLte(src int) int {
	if src <= 2 {
		return src
	}
	if src%2 == 0 {
		src--
	}
	for {
		if hasEasyFactors(src) {
			src = src - 2
			continue
		}
		if big.NewInt(int64(src)).ProbablyPrime(0) {
			return src
		}
		src = src - 2
	}
}
