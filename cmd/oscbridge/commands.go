package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/osc_bridge/internal/app"
)

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bridge headless",
		Long:  `Runs the send loop, the sample source and, if configured, the web control API, GPS reader and config watcher.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Printf("starting osc bridge (config %s)", *configPath)
			return app.RunBridge(*configPath)
		},
	}
}

func newTUICommand(configPath *string) *cobra.Command {
	var logPath string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the bridge with a terminal control panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunTUI(*configPath, logPath)
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "oscbridge.log", "File to write logs to while the panel is open")
	return cmd
}

func newMonitorCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print the OSC orientation messages arriving on a UDP port",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunMonitor(addr)
		},
	}
	cmd.Flags().StringVarP(&addr, "listen", "l", "0.0.0.0:9000", "UDP address to listen on")
	return cmd
}

func newSimulateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Publish a synthetic head rotation to the MQTT rotation topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("starting rotation simulator (MQTT publisher)")
			return app.RunSimulator(*configPath)
		},
	}
}

func newConsoleCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Print the angles a bridge mirrors to MQTT",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunConsoleMQTT(*configPath)
		},
	}
}
