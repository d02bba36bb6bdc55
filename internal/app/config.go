package app

import (
	"fmt"
	"io"
	"os"

	"github.com/tturner/canusb/internal/config"
)

type ConfigInitOptions struct {
	Path  string
	Force bool
	Out   io.Writer
}

// RunConfigInit writes the default configuration file.
func RunConfigInit(opts ConfigInitOptions) error {
	path := opts.Path
	if path == "" {
		path = config.DefaultPath
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote default config to %s\n", absPath(path))
	return nil
}
