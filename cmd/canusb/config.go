package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/canusb/internal/app"
)

func newConfigCmd(globals *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCmd(globals))
	return cmd
}

func newConfigInitCmd(globals *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Example: `  canusb config init
  canusb config init --config ./bench.yaml --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunConfigInit(app.ConfigInitOptions{
				Path:  globals.configPath,
				Force: force,
				Out:   cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
