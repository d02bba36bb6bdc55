package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/canusb/internal/app"
)

type portsFlags struct {
	all bool
}

func newPortsCmd(globals *globalFlags) *cobra.Command {
	flags := &portsFlags{}

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports and matching adapters",
		Long: `List serial ports that match the configured adapter identity
(adapter.vendor_id/product_id, or --device). Use --all to list every port and
mark the matching ones.`,
		Example: `  # Ports matching the configured adapter
  canusb ports

  # Every serial port, matches marked with *
  canusb ports --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunPorts(cmd.Context(), app.PortsOptions{
				CommonOptions: globals.common(cmd),
				All:           flags.all,
			})
		},
	}

	cmd.Flags().BoolVar(&flags.all, "all", false, "List every serial port, not only matching adapters")

	return cmd
}
