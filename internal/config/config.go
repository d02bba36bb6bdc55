package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tturner/canusb/internal/errors"
	"github.com/tturner/canusb/internal/lawicel"
	"github.com/tturner/canusb/internal/transport"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "canusb_config.yaml"

// Reference adapter identity (STMicroelectronics virtual COM port, CANable/CANUSB clones).
const (
	DefaultVendorID  USBID = 0x0483
	DefaultProductID USBID = 0x5740
)

const (
	DefaultBaudRate       = 115200
	DefaultBitrateKbps    = 500
	DefaultSettleDelayMs  = 100
	DefaultCommandDelayMs = 50
	DefaultMaxRows        = 200
)

// Config represents the canusb configuration file.
type Config struct {
	Adapter AdapterConfig `yaml:"adapter"`
	CAN     CANConfig     `yaml:"can"`
	Timing  TimingConfig  `yaml:"timing"`
	Log     LogConfig     `yaml:"log"`
}

// AdapterConfig identifies the USB adapter and its serial link.
type AdapterConfig struct {
	VendorID  USBID  `yaml:"vendor_id"`
	ProductID USBID  `yaml:"product_id"`
	Port      string `yaml:"port,omitempty"` // explicit device path; skips enumeration
	BaudRate  int    `yaml:"baud_rate"`
}

// CANConfig holds bus parameters.
type CANConfig struct {
	BitrateKbps int `yaml:"bitrate_kbps"`
}

// TimingConfig holds the configuration sequence delays.
type TimingConfig struct {
	SettleDelayMs  int `yaml:"settle_delay_ms"`
	CommandDelayMs int `yaml:"command_delay_ms"`
}

// LogConfig controls the event log views and exports.
type LogConfig struct {
	MaxRows   int    `yaml:"max_rows"`
	ExportDir string `yaml:"export_dir"`
}

// USBID is a 16-bit USB vendor or product identifier, written as hex in YAML.
type USBID uint16

func (id USBID) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("0x%04X", uint16(id)), nil
}

func (id *USBID) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return fmt.Errorf("line %d: invalid USB id %q (want hex, e.g. 0x0483)", value.Line, value.Value)
	}
	*id = USBID(v)
	return nil
}

// CreateDefaultConfig returns the configuration for the reference adapter.
func CreateDefaultConfig() *Config {
	return &Config{
		Adapter: AdapterConfig{
			VendorID:  DefaultVendorID,
			ProductID: DefaultProductID,
			BaudRate:  DefaultBaudRate,
		},
		CAN: CANConfig{
			BitrateKbps: DefaultBitrateKbps,
		},
		Timing: TimingConfig{
			SettleDelayMs:  DefaultSettleDelayMs,
			CommandDelayMs: DefaultCommandDelayMs,
		},
		Log: LogConfig{
			MaxRows:   DefaultMaxRows,
			ExportDir: ".",
		},
	}
}

// WriteDefaultConfig writes the default config to path.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(CreateDefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadConfig loads and validates the config at path, creating a default file when
// it does not exist and autoCreate is set. Keys missing from the file keep their defaults.
func LoadConfig(path string, autoCreate bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
		}
		if !autoCreate {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		if err := WriteDefaultConfig(path); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapConfigError(fmt.Errorf("read created config file: %w", err), path)
		}
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := CreateDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if cfg.Adapter.BaudRate == 0 {
		cfg.Adapter.BaudRate = DefaultBaudRate
	}
	if cfg.CAN.BitrateKbps == 0 {
		cfg.CAN.BitrateKbps = DefaultBitrateKbps
	}
	if cfg.Log.MaxRows == 0 {
		cfg.Log.MaxRows = DefaultMaxRows
	}
	if cfg.Log.ExportDir == "" {
		cfg.Log.ExportDir = "."
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ValidateConfig checks field ranges.
func ValidateConfig(cfg *Config) error {
	if cfg.Adapter.Port == "" && cfg.Adapter.VendorID == 0 && cfg.Adapter.ProductID == 0 {
		return fmt.Errorf("adapter: vendor_id/product_id or port is required")
	}
	if cfg.Adapter.BaudRate <= 0 {
		return fmt.Errorf("adapter.baud_rate must be positive, got %d", cfg.Adapter.BaudRate)
	}
	if _, err := lawicel.BitrateCommand(cfg.CAN.BitrateKbps); err != nil {
		return fmt.Errorf("can.bitrate_kbps: %w", err)
	}
	if cfg.Timing.SettleDelayMs < 0 {
		return fmt.Errorf("timing.settle_delay_ms must be >= 0, got %d", cfg.Timing.SettleDelayMs)
	}
	if cfg.Timing.CommandDelayMs < 0 {
		return fmt.Errorf("timing.command_delay_ms must be >= 0, got %d", cfg.Timing.CommandDelayMs)
	}
	if cfg.Log.MaxRows <= 0 {
		return fmt.Errorf("log.max_rows must be positive, got %d", cfg.Log.MaxRows)
	}
	return nil
}

// Filter returns the device identity filter.
func (c *Config) Filter() transport.Filter {
	return transport.Filter{
		VendorID:  uint16(c.Adapter.VendorID),
		ProductID: uint16(c.Adapter.ProductID),
	}
}

// BitrateCommand returns the SLCAN setup command for the configured bitrate.
func (c *Config) BitrateCommand() string {
	cmd, err := lawicel.BitrateCommand(c.CAN.BitrateKbps)
	if err != nil {
		return ""
	}
	return cmd
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Timing.SettleDelayMs) * time.Millisecond
}

func (c *Config) CommandDelay() time.Duration {
	return time.Duration(c.Timing.CommandDelayMs) * time.Millisecond
}
