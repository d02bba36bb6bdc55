package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// handleHelpArg treats a bare "help" or "?" argument as a help request.
func handleHelpArg(cmd *cobra.Command, args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch strings.ToLower(args[0]) {
	case "help", "?":
		_ = cmd.Help()
		return true
	}
	return false
}

// missingFlagError prints the command usage and names the flag, plus any
// flags that can stand in for it.
func missingFlagError(cmd *cobra.Command, flag string, alternatives ...string) error {
	_ = cmd.Usage()
	if len(alternatives) > 0 {
		return fmt.Errorf("required flag %s not set (or use %s)", flag, strings.Join(alternatives, ", "))
	}
	return fmt.Errorf("required flag %s not set (see \"%s --help\")", flag, cmd.CommandPath())
}
