// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

// Command mtrudd checks reachability and reward properties of probabilistic
// models given in YAML format.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var debug bool
	rootCmd := &cobra.Command{
		Use:   "mtrudd",
		Short: "Probabilistic model checking with decision diagrams",
		Long: `mtrudd computes reachability probabilities and expected rewards of
discrete and continuous time Markov chains and Markov decision processes,
using multi-terminal decision diagrams for the state space and sparse
matrices for value iteration.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(newCheckCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
