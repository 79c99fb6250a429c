// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "oscbridge",
		Short: "Stream head orientation as OSC over UDP",
		Long: `oscbridge converts live orientation quaternions into yaw/pitch/roll and
sends them as /orientation OSC messages to a configurable UDP destination.
Destination and axes can be changed while it runs.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "oscbridge_config.txt", "Config file (KEY=VALUE, or .yaml)")

	rootCmd.AddCommand(newRunCommand(&configPath))
	rootCmd.AddCommand(newTUICommand(&configPath))
	rootCmd.AddCommand(newMonitorCommand())
	rootCmd.AddCommand(newSimulateCommand(&configPath))
	rootCmd.AddCommand(newConsoleCommand(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
