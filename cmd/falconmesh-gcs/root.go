package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "falconmesh-gcs",
	Short: "FalconMesh ground-control client",
	Long:  "falconmesh-gcs mirrors swarm telemetry from a FalconMesh control plane, keeps a local world model current, and lets an operator dispatch commands.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
}
