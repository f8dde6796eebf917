package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"digitforge/internal/dataset"
)

var flags *pflag.FlagSet

var cfgPathFlag string

func init() {
	resetFlags()
}

// Explicitly define a method to facilitate tests
func resetFlags() {
	flags = &pflag.FlagSet{}

	flags.StringVarP(&cfgPathFlag, "config", "c", "", "path to a YAML config file")
	flags.String("source", "builtin", "sample source: builtin, csv or shards")
	flags.String("data", "", "csv file, shard directory, or digits cache directory for builtin")
	flags.String("data-url", dataset.DigitsURL, "where the builtin digits are downloaded from when not cached")
	flags.Float64("test-fraction", 0.5, "share of samples held out for evaluation, in (0,1)")
	flags.Int64("split-seed", 0, "seed for the train/test shuffle; 0 draws a new split every run")
	flags.IntSlice("hidden", []int{50}, "hidden layer widths")
	flags.String("activation", "logistic", "hidden activation: logistic, tanh, relu or identity")
	flags.Float64("alpha", 1e-4, "L2 penalty")
	flags.String("solver", "sgd", "optimizer: sgd or adam")
	flags.Float64("tol", 1e-4, "minimum loss improvement counted as progress")
	flags.Float64("learning-rate", 0.1, "initial learning rate")
	flags.Int("max-iter", 200, "maximum training iterations")
	flags.Int64("seed", 1, "seed for weight initialisation and batch shuffling")
	flags.BoolP("verbose", "v", true, "log loss after every iteration")
	flags.String("preview", "", "write a PNG of evaluation samples and predictions to this path")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-file", "", "also write logs to this file, rotated daily")
}

func attachFlags(cmd *cobra.Command, names []string) {
	cmdFlags := cmd.Flags()
	for _, name := range names {
		if flag := flags.Lookup(name); flag != nil {
			cmdFlags.AddFlag(flag)
		} else {
			panic(fmt.Errorf("could not find flag '%s' to attach to command '%s'", name, cmd.Name()))
		}
	}
}
