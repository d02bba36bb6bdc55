package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/canusb/internal/app"
	"github.com/tturner/canusb/internal/config"
)

// globalFlags are registered on the root command and shared by every subcommand.
type globalFlags struct {
	configPath string
	device     string
	port       string
	bitrate    int
	verbose    bool
	debug      bool
	logFile    string
}

func registerGlobalFlags(cmd *cobra.Command, flags *globalFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultPath, "Config file path (created with defaults if missing)")
	pf.StringVar(&flags.device, "device", "", "Adapter USB identity VID:PID (hex), overrides adapter.vendor_id/product_id")
	pf.StringVar(&flags.port, "port", "", "Serial device path, skips USB enumeration (e.g. /dev/ttyACM0, COM3)")
	pf.IntVar(&flags.bitrate, "bitrate", 0, "CAN bitrate in kbit/s (10, 20, 50, 100, 125, 250, 500, 800, 1000)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose logging")
	pf.BoolVar(&flags.debug, "debug", false, "Debug logging, including raw adapter traffic")
	pf.StringVar(&flags.logFile, "log-file", "", "Also write the full log to this file")
}

func (g *globalFlags) common(cmd *cobra.Command) app.CommonOptions {
	return app.CommonOptions{
		ConfigPath: g.configPath,
		AutoCreate: !cmd.Flags().Changed("config"),
		Device:     g.device,
		Port:       g.port,
		Bitrate:    g.bitrate,
		Verbose:    g.verbose,
		Debug:      g.debug,
		LogFile:    g.logFile,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	}
}
