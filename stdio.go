// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package mtrudd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
)

// Statistics is a snapshot of the state of a Manager.
type Statistics struct {
	Varnum      int // Number of variables
	Nodes       int // Size of the node table
	Free        int // Number of free nodes in the table
	Leaves      int // Number of numeric leaves (the constant one excluded)
	Produced    int // Total number of nodes ever produced
	Resizes     int // Number of times the node table was resized
	GC          int // Number of garbage collections
	ExtRefs     int // Total number of Nodes handed out
	Reclaimed   int // Number of Nodes reclaimed by the Go runtime
	CacheHits   int // Hits in the operation caches
	CacheMisses int // Misses in the operation caches
}

// Statistics returns information about the node table, the garbage collector
// and the caches of b.
func (b *Manager) Statistics() Statistics {
	res := Statistics{
		Varnum:      int(b.varnum),
		Nodes:       len(b.nodes),
		Free:        b.freenum,
		Leaves:      len(b.leaves) - 1,
		Produced:    b.produced,
		Resizes:     b.resizes,
		GC:          len(b.gcstat.history),
		ExtRefs:     int(b.gcstat.setfinalizers),
		Reclaimed:   int(b.gcstat.calledfinalizers),
		CacheHits:   b.opHit,
		CacheMisses: b.opMiss,
	}
	for _, g := range b.gcstat.history {
		res.ExtRefs += g.setfinalizers
		res.Reclaimed += g.calledfinalizers
	}
	return res
}

// Stats returns a textual description of the statistics of b.
func (b *Manager) Stats() string {
	s := b.Statistics()
	res := fmt.Sprintf("Varnum:     %d\n", s.Varnum)
	res += fmt.Sprintf("Allocated:  %d\n", s.Nodes)
	res += fmt.Sprintf("Produced:   %d\n", s.Produced)
	r := (float64(s.Free) / float64(s.Nodes)) * 100
	res += fmt.Sprintf("Free:       %d  (%.3g %%)\n", s.Free, r)
	res += fmt.Sprintf("Used:       %d  (%.3g %%)\n", s.Nodes-s.Free, (100.0 - r))
	res += fmt.Sprintf("Leaves:     %d\n", s.Leaves)
	res += fmt.Sprintf("Resizes:    %d\n", s.Resizes)
	res += fmt.Sprintf("# of GC:    %d\n", s.GC)
	res += fmt.Sprintf("Ext. refs:  %d\n", s.ExtRefs)
	res += fmt.Sprintf("Reclaimed:  %d", s.Reclaimed)
	return res
}

// PrintStats outputs a textual representation of the statistics of b.
func (b *Manager) PrintStats(w io.Writer) {
	fmt.Fprintln(w, "==============")
	fmt.Fprintln(w, b.Stats())
	fmt.Fprintln(w, "==============")
	fmt.Fprintln(w, b.cacheStat)
	fmt.Fprintln(w, "==============")
}

// ************************************************************

// Sprint returns a one-line description of node n.
func (b *Manager) Sprint(n Node) string {
	if err := b.checkptr(n); err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	switch {
	case n.e == trueEdge:
		return "True"
	case n.e == falseEdge:
		return "False"
	case b.isleaf(n.e):
		return strconv.FormatFloat(b.value(n.e), 'g', -1, 64)
	}
	neg := ""
	if n.e.complemented() {
		neg = "~"
	}
	k := n.e.index()
	return fmt.Sprintf("%s(%d[%d] ? %d : %d)", neg, k, b.level(n.e), b.nodes[k].low, b.nodes[k].high)
}

// Print outputs a textual representation of the diagram with root n, with one
// line for each node. Complemented edges are printed with a tilde.
func (b *Manager) Print(w io.Writer, n Node) error {
	if err := b.checkptr(n); err != nil {
		fmt.Fprintf(w, "ERROR: %s\n", err)
		return err
	}
	nodes := b.reachable(n.e)
	fmt.Fprintf(w, "node: %s\n", edgelabel(n.e))
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, k := range nodes {
		if b.nodes[k].level&_LEVELMASK == _LEAFLEVEL {
			fmt.Fprintf(tw, "%d\t= %g\n", k, b.nodes[k].value)
			continue
		}
		fmt.Fprintf(tw, "%d\t[%d]\t? %s\t: %s\n", k, b.nodes[k].level&_LEVELMASK, edgelabel(b.nodes[k].low), edgelabel(b.nodes[k].high))
	}
	return tw.Flush()
}

func edgelabel(e Edge) string {
	if e.complemented() {
		return fmt.Sprintf("~%d", e.index())
	}
	return strconv.Itoa(int(e.index()))
}

// reachable returns the sorted list of indices of nodes reachable from e.
func (b *Manager) reachable(e Edge) []int32 {
	b.markrec(e.index())
	nodes := []int32{}
	for k := range b.nodes {
		if b.nodes[k].low != nilEdge && b.ismarked(int32(k)) {
			b.unmarknode(int32(k))
			nodes = append(nodes, int32(k))
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// PrintDot prints a graph-like description of the diagram with root n using
// the DOT format. Low branches are dotted, complemented edges are drawn in red
// and we do not draw arcs that go to the constant false or to the leaf zero.
func (b *Manager) PrintDot(w io.Writer, n Node) error {
	if err := b.checkptr(n); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph G {")
	if n.e.complemented() {
		fmt.Fprintln(bw, "root [shape=point];")
		fmt.Fprintf(bw, "root -> %d [color=red];\n", n.e.index())
	}
	for _, k := range b.reachable(n.e) {
		if b.nodes[k].level&_LEVELMASK == _LEAFLEVEL {
			fmt.Fprintf(bw, "%d [shape=box, label=\"%g\", style=filled, height=0.3, width=0.3];\n", k, b.nodes[k].value)
			continue
		}
		fmt.Fprintf(bw, "%d %s\n", k, dotlabel(int(k), b.nodes[k].level&_LEVELMASK))
		for _, c := range []struct {
			e     Edge
			style string
		}{{b.nodes[k].low, "dotted"}, {b.nodes[k].high, "filled"}} {
			if c.e == falseEdge || c.e == b.zero {
				continue
			}
			color := ""
			if c.e.complemented() {
				color = ", color=red"
			}
			fmt.Fprintf(bw, "%d -> %d [style=%s%s];\n", k, c.e.index(), c.style, color)
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func dotlabel(a int, b int32) string {
	return fmt.Sprintf(`[label=<
	<FONT POINT-SIZE="20">%d</FONT>
	<FONT POINT-SIZE="10">[%d]</FONT>
>];`, b, a)
}
