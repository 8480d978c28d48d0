// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mdp = `
kind: mdp
states: 3
initial: [0]
labels:
  goal: [2]
  lost: [1]
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

func execute(t *testing.T, args ...string) (string, error) {
	name := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(name, []byte(mdp), 0o600))
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"check", "-m", name}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "-t", "goal", "--objective", "min")
	require.NoError(t, err)
	assert.Contains(t, out, "probability from state 0: 0.5\n")

	out, err = execute(t, "-t", "goal", "--reward", "--objective", "min", "-o", "yaml")
	require.NoError(t, err)
	var r report
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	assert.Equal(t, "reward", r.Property)
	assert.Equal(t, []value{{State: 0, Lower: "1", Upper: "1"}}, r.Initial)
	assert.True(t, r.Exact)

	out, err = execute(t, "-t", "goal", "--steps", "1", "--method", "gauss-seidel", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "probability from state 0: 1\n")
	assert.Contains(t, out, `mtrudd_solver_runs_total{computation="bounded-until",status="converged"} 1`)
	assert.Contains(t, out, `mtrudd_diagram_variables{manager="check"}`)
}

func TestCheckErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-t", "none"},
		{"-t", "goal", "--objective", "best"},
		{"-t", "goal", "--method", "newton"},
		{"-t", "goal", "-o", "xml"},
		{"-t", "goal", "--steps", "2", "--time", "1"},
		{"-t", "goal", "--time", "1"},
		{"-t", "goal", "--avoid", "none"},
	} {
		_, err := execute(t, args...)
		assert.Error(t, err, "%v", args)
	}
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", "-m", filepath.Join(t.TempDir(), "missing.yaml"), "-t", "goal"})
	assert.Error(t, cmd.Execute())
}
