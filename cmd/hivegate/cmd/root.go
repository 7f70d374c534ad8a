package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hivegate",
	Short: "Cluster job-submission admission gateway",
	Long: `hivegate sits in front of the cluster scheduler's submission API.
It validates job protocols, decides the effective scheduling priority
class from administrator rules and the submitter's current GPU
occupancy, renders template expressions, and forwards admitted jobs to
the scheduler.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
