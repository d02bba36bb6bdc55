package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	globals := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "canusb",
		Short: "CAN bus monitor for Lawicel/SLCAN USB adapters",
		Long: `CANUSB talks to USB-to-CAN adapters that speak the Lawicel (SLCAN) ASCII
protocol. It opens the CAN channel, decodes received frames, sends frames,
and exports traces as CSV, JSON or PCAP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	registerGlobalFlags(rootCmd, globals)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newPortsCmd(globals))
	rootCmd.AddCommand(newMonitorCmd(globals))
	rootCmd.AddCommand(newSendCmd(globals))
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newTUICmd(globals))
	rootCmd.AddCommand(newConfigCmd(globals))

	// Short top-level usage; subcommands keep cobra's default help.
	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			defaultHelp(cmd, args)
			return
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Usage:\n  %s <command> [options]\n\n", cmd.Name())
		fmt.Fprintf(out, "Available Commands:\n")
		for _, subCmd := range cmd.Commands() {
			if !subCmd.Hidden && subCmd.IsAvailableCommand() {
				fmt.Fprintf(out, "  %-15s %s\n", subCmd.Name(), subCmd.Short)
			}
		}
		fmt.Fprintf(out, "\nGlobal Options:\n%s", cmd.PersistentFlags().FlagUsages())
		fmt.Fprintf(out, "\nUse \"%s help <command>\" for more information about a command.\n", cmd.Name())
	})

	return rootCmd
}
