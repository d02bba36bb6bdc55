package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tturner/canusb/internal/app"
)

type sendFlags struct {
	id          string
	dlc         string
	data        string
	extended    bool
	remote      bool
	count       int
	intervalMs  int
	listenMs    int
	interactive bool
}

func newSendCmd(globals *globalFlags) *cobra.Command {
	flags := &sendFlags{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a CAN frame",
		Long: `Connect to the adapter and transmit one CAN frame, then close the channel.

The identifier is 3 hex characters for standard frames or 8 with --extended.
When --dlc is omitted it follows the data length. Use --interactive to fill
the frame in with a form.`,
		Example: `  # Standard frame 0x123 with two data bytes
  canusb send --id 123 --data "AA BB"

  # Extended frame, sent five times 100ms apart
  canusb send --id 18DAF110 --extended --data 023E00 --count 5 --interval 100

  # Remote request, then print replies for one second
  canusb send --id 7DF --remote --dlc 8 --listen 1000

  # Fill in the frame interactively
  canusb send --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.id == "" && !flags.interactive {
				return missingFlagError(cmd, "--id", "--interactive")
			}
			if flags.count < 1 {
				return fmt.Errorf("--count must be >= 1")
			}
			if flags.intervalMs < 0 || flags.listenMs < 0 {
				return fmt.Errorf("--interval and --listen must be >= 0")
			}
			id := flags.id
			if flags.interactive {
				id = ""
			}
			return app.RunSend(cmd.Context(), app.SendOptions{
				CommonOptions: globals.common(cmd),
				ID:            id,
				DLC:           flags.dlc,
				Data:          flags.data,
				Extended:      flags.extended,
				Remote:        flags.remote,
				Count:         flags.count,
				Interval:      time.Duration(flags.intervalMs) * time.Millisecond,
				Listen:        time.Duration(flags.listenMs) * time.Millisecond,
			})
		},
	}

	cmd.Flags().StringVar(&flags.id, "id", "", "CAN identifier in hex (required unless --interactive)")
	cmd.Flags().StringVar(&flags.dlc, "dlc", "", "Data length code 0-8 (default: data length)")
	cmd.Flags().StringVar(&flags.data, "data", "", "Data bytes in hex, spaces allowed")
	cmd.Flags().BoolVar(&flags.extended, "extended", false, "Use a 29-bit extended identifier")
	cmd.Flags().BoolVar(&flags.remote, "remote", false, "Send a remote transmission request")
	cmd.Flags().IntVar(&flags.count, "count", 1, "Number of times to send the frame")
	cmd.Flags().IntVar(&flags.intervalMs, "interval", 0, "Delay between repeated frames in milliseconds")
	cmd.Flags().IntVar(&flags.listenMs, "listen", 0, "Keep printing received traffic for this many milliseconds")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "Fill in the frame with an interactive form")

	return cmd
}
