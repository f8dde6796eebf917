package main

import (
	"os"

	"github.com/spf13/cobra"
)

var mainCmd = &cobra.Command{
	Use:          "digitforge",
	Short:        "Train and evaluate a handwritten digit classifier",
	SilenceUsage: true,
}

func main() {
	mainCmd.AddCommand(runCMD())

	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}
