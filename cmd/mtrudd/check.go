// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/dalzilio/mtrudd"
	"github.com/dalzilio/mtrudd/check"
	"github.com/dalzilio/mtrudd/metrics"
	"github.com/dalzilio/mtrudd/model"
	"github.com/dalzilio/mtrudd/solver"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	model         string
	target        string
	avoid         string
	objective     string
	steps         int
	time          float64
	interval      bool
	witness       bool
	reward        bool
	method        string
	epsilon       float64
	maxIterations int
	output        string
	metrics       bool
	nodesize      int
}

func newCheckCmd() *cobra.Command {
	o := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compute the probability of reaching a label",
		Long: `The check command loads a model and computes, for its initial states,
the probability of reaching the states with the target label, or the expected
reward accumulated before reaching them.

    $ mtrudd check -m model.yaml -t goal --objective min --interval --witness
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return o.run(ctx, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&o.model, "model", "m", "", "YAML file of the model")
	if err := cmd.MarkFlagRequired("model"); err != nil {
		log.Fatalf("Failed to mark `model` flag for `check` subcommand as required")
	}
	cmd.Flags().StringVarP(&o.target, "target", "t", "", "label of the target states")
	if err := cmd.MarkFlagRequired("target"); err != nil {
		log.Fatalf("Failed to mark `target` flag for `check` subcommand as required")
	}
	cmd.Flags().StringVar(&o.avoid, "avoid", "", "label of the states to avoid")
	cmd.Flags().StringVar(&o.objective, "objective", "max", "one of: [max, min, max-min, min-max]")
	cmd.Flags().IntVar(&o.steps, "steps", 0, "bound on the number of steps (0 for unbounded)")
	cmd.Flags().Float64Var(&o.time, "time", 0, "time bound, for continuous time models (0 for unbounded)")
	cmd.Flags().BoolVar(&o.interval, "interval", false, "compute lower and upper bounds")
	cmd.Flags().BoolVar(&o.witness, "witness", false, "extract a witness graph when bounds do not meet (with --interval)")
	cmd.Flags().BoolVar(&o.reward, "reward", false, "compute the expected reward instead of a probability")
	cmd.Flags().StringVar(&o.method, "method", "jacobi", "one of: [jacobi, gauss-seidel]")
	cmd.Flags().Float64Var(&o.epsilon, "epsilon", 1e-6, "convergence threshold")
	cmd.Flags().IntVar(&o.maxIterations, "max-iterations", 10000, "maximal number of iterations")
	cmd.Flags().StringVarP(&o.output, "output", "o", "text", "one of: [text, yaml]")
	cmd.Flags().BoolVar(&o.metrics, "metrics", false, "print Prometheus metrics after the result")
	cmd.Flags().IntVar(&o.nodesize, "nodesize", 10000, "initial size of the node table")
	return cmd
}

func parseObjective(s string) (solver.Objective, error) {
	switch s {
	case "max":
		return solver.Maximize(), nil
	case "min":
		return solver.Minimize(), nil
	case "max-min":
		return solver.Objective{Outer: solver.Max, Inner: solver.Min}, nil
	case "min-max":
		return solver.Objective{Outer: solver.Min, Inner: solver.Max}, nil
	}
	return solver.Objective{}, errors.Errorf("unknown objective %q", s)
}

func parseMethod(s string) (solver.Method, error) {
	switch s {
	case "jacobi":
		return solver.Jacobi, nil
	case "gauss-seidel":
		return solver.GaussSeidel, nil
	}
	return solver.Jacobi, errors.Errorf("unknown method %q", s)
}

func (o *checkOptions) query(mod *model.Model) (check.Query, error) {
	q := check.Query{Model: mod, Interval: o.interval, Witness: o.witness}
	var err error
	if q.Objective, err = parseObjective(o.objective); err != nil {
		return q, err
	}
	if q.Target, err = mod.Label(o.target); err != nil {
		return q, err
	}
	if o.avoid != "" {
		if q.Avoid, err = mod.Label(o.avoid); err != nil {
			return q, err
		}
	}
	switch {
	case o.steps > 0 && o.time > 0:
		return q, errors.New("--steps and --time cannot be used together")
	case o.steps > 0:
		q.Bound = check.Bound{Kind: check.StepBounded, Steps: o.steps}
	case o.time > 0:
		q.Bound = check.Bound{Kind: check.TimeBounded, Time: o.time}
	}
	return q, nil
}

func (o *checkOptions) run(ctx context.Context, out io.Writer) error {
	if o.output != "text" && o.output != "yaml" {
		return errors.Errorf("unknown output format %q", o.output)
	}
	method, err := parseMethod(o.method)
	if err != nil {
		return err
	}
	e, err := model.LoadFile(o.model)
	if err != nil {
		return err
	}
	bdd, err := mtrudd.New(0, mtrudd.Nodesize(o.nodesize), mtrudd.Logger(log.StandardLogger()))
	if err != nil {
		return err
	}
	mod, err := e.Build(bdd)
	if err != nil {
		return err
	}
	q, err := o.query(mod)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	sm, err := metrics.Register(reg, bdd, "check")
	if err != nil {
		return err
	}
	options := []check.Option{
		check.WithLogger(log.StandardLogger()),
		check.WithSolver(
			solver.WithMethod(method),
			solver.WithCriterion(solver.Relative, o.epsilon),
			solver.WithMaxIterations(o.maxIterations),
			solver.WithObserver(sm),
		),
	}
	compute := check.ComputeReachability
	if o.reward {
		compute = check.ComputeReward
	}
	res, err := compute(ctx, q, options...)
	if err != nil && !errors.Is(err, solver.ErrConvergence) {
		return err
	}
	log.WithField("run", res.RunID).Debugf("diagram statistics\n%s", bdd.Stats())
	if perr := o.print(out, newReport(res, o.reward)); perr != nil {
		return perr
	}
	if o.metrics {
		if merr := printMetrics(out, reg); merr != nil {
			return merr
		}
	}
	return err
}

// report is the printed summary of a result. Values are strings since they
// can be infinite.
type report struct {
	RunID       string   `json:"run"`
	Property    string   `json:"property"`
	Status      string   `json:"status"`
	Iterations  int      `json:"iterations"`
	Exact       bool     `json:"exact"`
	States      int      `json:"states"`
	Transitions int      `json:"transitions"`
	Initial     []value  `json:"initial"`
	Witness     *witness `json:"witness,omitempty"`
}

type value struct {
	State int    `json:"state"`
	Lower string `json:"lower"`
	Upper string `json:"upper"`
}

type witness struct {
	Vertices int   `json:"vertices"`
	Boundary []int `json:"boundary"`
	Cycles   int   `json:"cycles"`
}

func format(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func newReport(res *check.Result, reward bool) report {
	r := report{
		RunID:       res.RunID,
		Property:    "probability",
		Status:      res.Status.String(),
		Iterations:  res.Iterations,
		Exact:       res.Exact,
		States:      res.Matrix.NumStates(),
		Transitions: res.Matrix.NumTransitions(),
	}
	if reward {
		r.Property = "reward"
	}
	for _, i := range res.Initial {
		s, err := res.State(i)
		if err != nil {
			continue
		}
		r.Initial = append(r.Initial, value{State: s, Lower: format(res.Lower[i]), Upper: format(res.Upper[i])})
	}
	if w := res.Witness; w != nil {
		r.Witness = &witness{Vertices: w.Len(), Cycles: len(w.Cycles())}
		for _, i := range w.Boundary() {
			if s, err := res.State(i); err == nil {
				r.Witness.Boundary = append(r.Witness.Boundary, s)
			}
		}
	}
	return r
}

func (o *checkOptions) print(out io.Writer, r report) error {
	if o.output == "yaml" {
		data, err := yaml.Marshal(r)
		if err != nil {
			return errors.Wrap(err, "encoding result")
		}
		_, err = out.Write(data)
		return err
	}
	fmt.Fprintf(out, "run %s: %s, %d iterations (%d states, %d transitions)\n",
		r.RunID, r.Status, r.Iterations, r.States, r.Transitions)
	for _, v := range r.Initial {
		if r.Exact && v.Lower == v.Upper {
			fmt.Fprintf(out, "%s from state %d: %s\n", r.Property, v.State, v.Lower)
			continue
		}
		fmt.Fprintf(out, "%s from state %d: [%s, %s]\n", r.Property, v.State, v.Lower, v.Upper)
	}
	if r.Witness != nil {
		fmt.Fprintf(out, "witness: %d vertices, %d cycles, boundary states %v\n",
			r.Witness.Vertices, r.Witness.Cycles, r.Witness.Boundary)
	}
	return nil
}

func printMetrics(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
