package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/tturner/canusb/internal/app"
)

type decodeFlags struct {
	input    string
	csvPath  string
	jsonPath string
	pcapPath string
	summary  bool
	quiet    bool
	progress bool
}

func newDecodeCmd() *cobra.Command {
	flags := &decodeFlags{}

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a raw adapter capture",
		Long: `Decode a raw byte capture of adapter output (for example recorded with
"cat /dev/ttyACM0 > capture.bin") without a device attached. Lines are framed
on CR exactly as in a live session.`,
		Example: `  # Print decoded lines
  canusb decode --input capture.bin

  # Convert a capture to PCAP for Wireshark
  canusb decode --input capture.bin --pcap capture.pcap --quiet

  # Read from stdin
  cat capture.bin | canusb decode --input -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.input == "" {
				return missingFlagError(cmd, "--input")
			}
			return app.RunDecode(app.DecodeOptions{
				Input:    flags.input,
				In:       inputReader(cmd, flags.input),
				Out:      cmd.OutOrStdout(),
				CSVPath:  flags.csvPath,
				JSONPath: flags.jsonPath,
				PCAPPath: flags.pcapPath,
				Summary:  flags.summary,
				Quiet:    flags.quiet,
				Progress: progressWriter(cmd, flags.progress),
			})
		},
	}

	cmd.Flags().StringVar(&flags.input, "input", "", "Capture file, or - for stdin (required)")
	cmd.Flags().StringVar(&flags.csvPath, "csv", "", "Write events to a CSV file")
	cmd.Flags().StringVar(&flags.jsonPath, "json", "", "Write events to a JSON Lines file")
	cmd.Flags().StringVar(&flags.pcapPath, "pcap", "", "Write frames to a SocketCAN PCAP file")
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "Print a traffic summary")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print individual events")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "Show a progress bar on stderr while reading a file")

	return cmd
}

func inputReader(cmd *cobra.Command, input string) io.Reader {
	if input == "-" {
		return cmd.InOrStdin()
	}
	return nil
}

func progressWriter(cmd *cobra.Command, enabled bool) io.Writer {
	if !enabled {
		return nil
	}
	return cmd.ErrOrStderr()
}
