package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"nwksetup/serial"
)

// Config is the root configuration structure
type Config struct {
	App     AppConfig     `json:"app" yaml:"app"`
	Probe   ProbeConfig   `json:"probe" yaml:"probe"`
	Setup   SetupConfig   `json:"setup" yaml:"setup"`
	NATS    NATSConfig    `json:"nats" yaml:"nats"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name       string `json:"name" yaml:"name"`
	InstanceID string `json:"instance_id" yaml:"instance_id"`
}

// ProbeConfig is the device-name range tried when looking for the modem
type ProbeConfig struct {
	Prefix string `json:"prefix" yaml:"prefix"` // "COM" or "/dev/ttyUSB"
	First  *int   `json:"first" yaml:"first"`   // nil = platform default
	Last   *int   `json:"last" yaml:"last"`     // nil = platform default
}

// SetupConfig controls the configuration run itself
type SetupConfig struct {
	Provider     string `json:"provider" yaml:"provider"`             // "" = ask, "att", "verizon"
	LineSettleMS *int   `json:"line_settle_ms" yaml:"line_settle_ms"` // delay before each response read
}

// NATSConfig contains NATS connection settings. An empty URL disables NATS.
type NATSConfig struct {
	URL              string `json:"url" yaml:"url"`
	SubjectPrefix    string `json:"subject_prefix" yaml:"subject_prefix"`
	MaxReconnects    int    `json:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWaitSec int    `json:"reconnect_wait_sec" yaml:"reconnect_wait_sec"`
}

// LoggingConfig contains logging and log rotation settings
type LoggingConfig struct {
	File       string `json:"file" yaml:"file"`               // Log file path
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"` // Max size before rotation
	MaxBackups int    `json:"max_backups" yaml:"max_backups"` // Max number of old log files
	Compress   bool   `json:"compress" yaml:"compress"`       // Compress rotated logs
	Level      string `json:"level" yaml:"level"`             // Console level: debug, info, warn, error
	JSON       bool   `json:"json" yaml:"json"`               // JSON lines in the log file
	Transcript string `json:"transcript" yaml:"transcript"`   // Raw TX/RX transcript file, "" = off
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses the configuration file. Files ending in .yaml or
// .yml are parsed as YAML, anything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults fills in default values for optional fields
func (c *Config) setDefaults() {
	// App defaults
	if c.App.Name == "" {
		c.App.Name = "NWKSetup"
	}
	if c.App.InstanceID == "" {
		c.App.InstanceID = "default"
	}

	// Probe defaults follow the platform
	ns := serial.DefaultNamespace()
	if c.Probe.Prefix == "" {
		c.Probe.Prefix = ns.Prefix
	}
	if c.Probe.First == nil {
		c.Probe.First = intPtr(ns.First)
	}
	if c.Probe.Last == nil {
		c.Probe.Last = intPtr(ns.Last)
	}

	// Setup defaults
	c.Setup.Provider = strings.ToLower(strings.TrimSpace(c.Setup.Provider))
	if c.Setup.LineSettleMS == nil {
		c.Setup.LineSettleMS = intPtr(1000)
	}

	// NATS defaults
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "nwk.setup"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 3
	}
	if c.NATS.ReconnectWaitSec == 0 {
		c.NATS.ReconnectWaitSec = 2
	}

	// Logging defaults
	if c.Logging.File == "" {
		c.Logging.File = "4G_setup.log"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func intPtr(v int) *int {
	return &v
}

// SetProvider overrides setup.provider, e.g. from the -provider flag
func (c *Config) SetProvider(name string) error {
	c.Setup.Provider = strings.ToLower(strings.TrimSpace(name))
	if err := c.validateSetup(); err != nil {
		return fmt.Errorf("setup config: %w", err)
	}
	return nil
}

// Namespace returns the probe range as a serial.Namespace
func (p *ProbeConfig) Namespace() serial.Namespace {
	ns := serial.Namespace{Prefix: p.Prefix}
	if p.First != nil {
		ns.First = *p.First
	}
	if p.Last != nil {
		ns.Last = *p.Last
	}
	return ns
}

// Helper methods for time conversions
func (s *SetupConfig) LineSettle() time.Duration {
	if s.LineSettleMS == nil {
		return 0
	}
	return time.Duration(*s.LineSettleMS) * time.Millisecond
}

func (n *NATSConfig) ReconnectWait() time.Duration {
	return time.Duration(n.ReconnectWaitSec) * time.Second
}

// Enabled reports whether a NATS server is configured
func (n *NATSConfig) Enabled() bool {
	return n.URL != ""
}
