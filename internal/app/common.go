package app

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/canusb/internal/config"
	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/logging"
	"github.com/tturner/canusb/internal/transport"
	"github.com/tturner/canusb/internal/tui"
)

// CommonOptions are shared by every command that talks to an adapter.
type CommonOptions struct {
	ConfigPath string
	AutoCreate bool
	Device     string // VID:PID override
	Port       string // device path override
	Bitrate    int    // kbit/s override, 0 keeps the config value
	Verbose    bool
	Debug      bool
	LogFile    string

	// Acquirer replaces serial enumeration, for tests.
	Acquirer transport.Acquirer
	Stdout   io.Writer
	Stderr   io.Writer
}

func (o *CommonOptions) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o *CommonOptions) stderr() io.Writer {
	if o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(o CommonOptions) (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.LoadConfig(path, o.AutoCreate)
	if err != nil {
		return nil, err
	}

	if o.Device != "" {
		f, err := transport.ParseFilter(o.Device)
		if err != nil {
			return nil, fmt.Errorf("invalid --device: %w", err)
		}
		cfg.Adapter.VendorID = config.USBID(f.VendorID)
		cfg.Adapter.ProductID = config.USBID(f.ProductID)
	}
	if o.Port != "" {
		cfg.Adapter.Port = o.Port
	}
	if o.Bitrate != 0 {
		cfg.CAN.BitrateKbps = o.Bitrate
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

func newLogger(o CommonOptions) (*logging.Logger, error) {
	level := logging.LogLevelInfo
	if o.Verbose {
		level = logging.LogLevelVerbose
	}
	if o.Debug {
		level = logging.LogLevelDebug
	}
	logger, err := logging.NewLogger(level, o.LogFile)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.SetOutput(o.stdout(), o.stderr())
	return logger, nil
}

func acquirerFor(o CommonOptions, cfg *config.Config) transport.Acquirer {
	if o.Acquirer != nil {
		return o.Acquirer
	}
	return transport.NewSerialAcquirer(cfg.Adapter.Port)
}

func engineOptions(cfg *config.Config, logger *logging.Logger) engine.Options {
	return engine.Options{
		Filter:         cfg.Filter(),
		BaudRate:       cfg.Adapter.BaudRate,
		BitrateCommand: cfg.BitrateCommand(),
		BitrateKbps:    cfg.CAN.BitrateKbps,
		SettleDelay:    cfg.SettleDelay(),
		CommandDelay:   cfg.CommandDelay(),
		Logger:         logger,
	}
}

// FormatEvent renders one event as a monitor line.
func FormatEvent(ev lawicel.Event) string {
	dlc := " "
	if ev.HasDLC() {
		dlc = strconv.Itoa(ev.DLC)
	}
	line := fmt.Sprintf("%s  %-18s %-8s [%s]  %s",
		ev.Timestamp.Format("15:04:05.000"), ev.TypeLabel(), ev.ID, dlc, ev.DataString())
	if ev.Err != "" {
		line += "  (" + ev.Err + ")"
	}
	return strings.TrimRight(line, " ")
}

func styledEvent(ev lawicel.Event, color bool) string {
	line := FormatEvent(ev)
	if !color {
		return line
	}
	return tui.KindStyle(ev, tui.DefaultStyles).Render(line)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

var bannerStyle = lipgloss.NewStyle().Foreground(tui.DefaultTheme.Accent).Bold(true)
