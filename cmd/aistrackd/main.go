package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aistrackd/internal/app"
	"aistrackd/internal/ingest"
)

func main() {
	var config app.Config

	rootCmd := &cobra.Command{
		Use:   "aistrackd",
		Short: "AIS vessel tracker",
		Long: `AIS vessel tracker and broadcaster.

Ingests raw AIVDM/AIVDO NMEA sentences from TCP and UDP feeds, serial
receivers and recorded log files, reassembles and decodes them, merges the
reports into per-vessel state with position validation and spoof detection,
persists everything to SQLite, and broadcasts live updates to websocket
subscribers on /ws.

Example usage:
  aistrackd --tcp 10.0.0.5:10110 --serial /dev/ttyUSB0 --db ./aistrack.db --listen :8090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			application := app.NewApplication(config)
			return application.Start()
		},
	}

	rootCmd.Flags().StringSliceVarP(&config.TCPAddrs, "tcp", "t", nil, "TCP feed address (host:port), repeatable")
	rootCmd.Flags().StringSliceVarP(&config.UDPAddrs, "udp", "u", nil, "UDP listen address (host:port), repeatable")
	rootCmd.Flags().StringSliceVarP(&config.SerialDevices, "serial", "s", nil, "Serial device path, repeatable")
	rootCmd.Flags().UintVarP(&config.BaudRate, "baud", "b", ingest.DefaultBaudRate, "Serial baud rate")
	rootCmd.Flags().StringSliceVarP(&config.ReplayFiles, "file", "f", nil, "NMEA log file to replay, repeatable")
	rootCmd.Flags().StringVarP(&config.DBPath, "db", "d", app.DefaultDBPath, "SQLite database path")
	rootCmd.Flags().StringVarP(&config.ListenAddr, "listen", "l", app.DefaultListenAddr, "HTTP/websocket listen address")
	rootCmd.Flags().Float64Var(&config.SpoofLimitKM, "spoof-limit", app.DefaultSpoofLimitKM, "Spoof detection radius in km")
	rootCmd.Flags().StringVar(&config.CaptureDir, "raw-log-dir", "", "Directory for daily raw NMEA capture files (disabled when empty)")
	rootCmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.Flags().BoolVar(&config.ShowVersion, "version", false, "Show version information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
