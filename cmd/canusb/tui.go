package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/canusb/internal/app"
)

type tuiFlags struct {
	connect bool
}

func newTUICmd(globals *globalFlags) *cobra.Command {
	flags := &tuiFlags{}

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive monitor",
		Long: `Open the full-screen monitor: connection status, a live event table
(newest first), a send form, and CSV/JSON/PCAP export.

Keys:
  c connect    d disconnect    s send frame    y copy row
  e export CSV j export JSON   p export PCAP   l clear log
  q quit`,
		Example: `  # Open and connect immediately
  canusb tui --connect

  # Use an explicit device path and keep a log file
  canusb tui --port /dev/ttyACM0 --log-file canusb.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunTUI(cmd.Context(), app.TUIOptions{
				CommonOptions: globals.common(cmd),
				AutoConnect:   flags.connect,
			})
		},
	}

	cmd.Flags().BoolVar(&flags.connect, "connect", false, "Connect on startup")

	return cmd
}
