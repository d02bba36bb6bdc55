package app

import (
	"context"
	"fmt"

	"github.com/tturner/canusb/internal/errors"
	"github.com/tturner/canusb/internal/transport"
)

type PortsOptions struct {
	CommonOptions
	All bool
}

// RunPorts lists serial ports. Without All only ports matching the configured
// adapter identity are shown.
func RunPorts(ctx context.Context, opts PortsOptions) error {
	cfg, err := loadConfig(opts.CommonOptions)
	if err != nil {
		return err
	}
	out := opts.stdout()

	ports, err := acquirerFor(opts.CommonOptions, cfg).ListAuthorized(ctx)
	if err != nil {
		return errors.WrapAcquireError(err, cfg.Filter().String())
	}

	filter := cfg.Filter()
	if !opts.All {
		ports = transport.FilterPorts(ports, filter)
	}

	if len(ports) == 0 {
		if opts.All {
			fmt.Fprintf(out, "No serial ports found\n")
		} else {
			fmt.Fprintf(out, "No ports match %s (use --all to list every port)\n", filter)
		}
		return nil
	}

	fmt.Fprintf(out, "%-24s %-11s %-16s %s\n", "PORT", "USB ID", "SERIAL", "PRODUCT")
	for _, p := range ports {
		id := "-"
		if p.USB {
			id = fmt.Sprintf("%04X:%04X", p.VendorID, p.ProductID)
		}
		serial := p.SerialNumber
		if serial == "" {
			serial = "-"
		}
		marker := ""
		if opts.All && filter.Matches(p) && !filter.Any() {
			marker = "  *"
		}
		fmt.Fprintf(out, "%-24s %-11s %-16s %s%s\n", p.Name, id, serial, p.Product, marker)
	}
	return nil
}
