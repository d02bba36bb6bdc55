package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tturner/canusb/internal/app"
)

type monitorFlags struct {
	duration int
	csvPath  string
	jsonPath string
	pcapPath string
	quiet    bool
	summary  bool
}

func newMonitorCmd(globals *globalFlags) *cobra.Command {
	flags := &monitorFlags{}

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print received CAN traffic",
		Long: `Connect to the adapter, open the CAN channel and print every line it sends.

The adapter is configured with flush, bitrate and open commands. Traffic is
printed until Ctrl+C, --duration elapses, or the adapter disconnects. The
channel is closed again on exit.`,
		Example: `  # Monitor at the configured bitrate
  canusb monitor

  # 250 kbit/s for one minute, saving CSV and PCAP traces
  canusb monitor --bitrate 250 --duration 60 --csv trace.csv --pcap trace.pcap

  # Only print the summary
  canusb monitor --quiet --summary --duration 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.duration < 0 {
				return fmt.Errorf("--duration must be >= 0")
			}
			return app.RunMonitor(cmd.Context(), app.MonitorOptions{
				CommonOptions: globals.common(cmd),
				Duration:      time.Duration(flags.duration) * time.Second,
				CSVPath:       flags.csvPath,
				JSONPath:      flags.jsonPath,
				PCAPPath:      flags.pcapPath,
				Quiet:         flags.quiet,
				Summary:       flags.summary,
			})
		},
	}

	cmd.Flags().IntVar(&flags.duration, "duration", 0, "Stop after this many seconds (0 runs until Ctrl+C)")
	cmd.Flags().StringVar(&flags.csvPath, "csv", "", "Stream events to a CSV file")
	cmd.Flags().StringVar(&flags.jsonPath, "json", "", "Stream events to a JSON Lines file")
	cmd.Flags().StringVar(&flags.pcapPath, "pcap", "", "Write received frames to a SocketCAN PCAP file on exit")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print individual events")
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "Print a traffic summary on exit")

	return cmd
}
