package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"digitforge/internal/config"
	"digitforge/internal/logging"
	"digitforge/internal/pipeline"
)

func run(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgPathFlag, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := pipeline.Run(ctx, cfg, logger, cmd.OutOrStdout()); err != nil {
		logger.Errorf("run failed: %v", err)
		return err
	}
	return nil
}

func runCMD() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "train and evaluate the classifier",
		Long:  "Load digit samples, fit a multi-layer perceptron on a random share and report accuracy on the rest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}
	names := []string{"config"}
	for name := range config.FlagKeys {
		names = append(names, name)
	}
	attachFlags(runCmd, names)
	return runCmd
}
