// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/solver"
	"github.com/dalzilio/mtrudd/sparse"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagramCollector(t *testing.T) {
	bdd, err := mtrudd.New(3, mtrudd.Nodesize(1000))
	require.NoError(t, err)
	bdd.And(bdd.Ithvar(0), bdd.Ithvar(1))

	c := NewDiagramCollector(bdd, "test")
	assert.Equal(t, len(stats), testutil.CollectAndCount(c))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	expected := `
# HELP mtrudd_diagram_variables Number of declared variables.
# TYPE mtrudd_diagram_variables gauge
mtrudd_diagram_variables{manager="test"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "mtrudd_diagram_variables"))

	require.NoError(t, bdd.ExtVarnum(2))
	expected = strings.Replace(expected, "} 3", "} 5", 1)
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "mtrudd_diagram_variables"))
}

func TestSolverMetrics(t *testing.T) {
	m, err := sparse.FromExplicit([][]sparse.Choice{
		{{Entries: []sparse.Entry{{State: 0, Prob: 0.5}, {State: 1, Prob: 0.5}}}},
		{{Entries: []sparse.Entry{{State: 1, Prob: 1}}}},
	})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	sm := NewSolverMetrics(reg)
	yes := []bool{false, true}

	_, err = solver.Until(context.Background(), m, yes, nil, solver.Maximize(), solver.WithObserver(sm))
	require.NoError(t, err)
	_, err = solver.Until(context.Background(), m, yes, nil, solver.Maximize(),
		solver.WithObserver(sm), solver.WithPrecompute(false), solver.WithMaxIterations(2))
	require.ErrorIs(t, err, solver.ErrConvergence)

	assert.Equal(t, 1.0, testutil.ToFloat64(sm.Runs.WithLabelValues("until", "converged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.Runs.WithLabelValues("until", "max iterations exceeded")))
	assert.Equal(t, 1, testutil.CollectAndCount(sm.Iterations))
	n, err := testutil.GatherAndCount(reg, "mtrudd_solver_runs_total", "mtrudd_solver_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRegister(t *testing.T) {
	bdd, err := mtrudd.New(2)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	sm, err := Register(reg, bdd, "main")
	require.NoError(t, err)
	require.NotNil(t, sm)
	_, err = Register(reg, bdd, "main")
	assert.Error(t, err)
}
