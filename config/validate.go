package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// Valid log levels
	validLogLevels = map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	// Valid preselected providers; "" means ask on the console
	validProviders = map[string]bool{
		"":        true,
		"att":     true,
		"at&t":    true,
		"verizon": true,
	}
)

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.validateApp(); err != nil {
		return fmt.Errorf("app config: %w", err)
	}

	if err := c.validateProbe(); err != nil {
		return fmt.Errorf("probe config: %w", err)
	}

	if err := c.validateSetup(); err != nil {
		return fmt.Errorf("setup config: %w", err)
	}

	if err := c.validateNATS(); err != nil {
		return fmt.Errorf("nats config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (c *Config) validateApp() error {
	if c.App.Name == "" {
		return fmt.Errorf("name is required")
	}

	if c.App.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}

	// The instance ID ends up as a NATS subject token
	if strings.ContainsAny(c.App.InstanceID, " .*>") {
		return fmt.Errorf("instance_id must not contain spaces, '.', '*' or '>', got: %s", c.App.InstanceID)
	}

	return nil
}

func (c *Config) validateProbe() error {
	if c.Probe.Prefix == "" {
		return fmt.Errorf("prefix is required")
	}

	if c.Probe.First == nil || c.Probe.Last == nil {
		return fmt.Errorf("first and last are required")
	}

	if *c.Probe.First < 0 {
		return fmt.Errorf("first must be non-negative, got: %d", *c.Probe.First)
	}

	if *c.Probe.Last < *c.Probe.First {
		return fmt.Errorf("last (%d) must be >= first (%d)", *c.Probe.Last, *c.Probe.First)
	}

	return nil
}

func (c *Config) validateSetup() error {
	if !validProviders[c.Setup.Provider] {
		return fmt.Errorf("invalid provider %s, must be one of: att, at&t, verizon (or empty to ask)", c.Setup.Provider)
	}

	if c.Setup.LineSettleMS != nil && *c.Setup.LineSettleMS < 0 {
		return fmt.Errorf("line_settle_ms must be non-negative, got: %d", *c.Setup.LineSettleMS)
	}

	return nil
}

func (c *Config) validateNATS() error {
	// NATS is optional
	if c.NATS.URL == "" {
		return nil
	}

	if !strings.HasPrefix(c.NATS.URL, "nats://") {
		return fmt.Errorf("url must start with nats://, got: %s", c.NATS.URL)
	}

	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("subject_prefix is required")
	}

	// -1 means unlimited reconnects (NATS client convention)
	if c.NATS.MaxReconnects < -1 {
		return fmt.Errorf("max_reconnects must be -1 (unlimited) or non-negative, got: %d", c.NATS.MaxReconnects)
	}

	if c.NATS.ReconnectWaitSec <= 0 {
		return fmt.Errorf("reconnect_wait_sec must be positive, got: %d", c.NATS.ReconnectWaitSec)
	}

	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.File == "" {
		return fmt.Errorf("file is required")
	}

	if err := ensureDir(c.Logging.File); err != nil {
		return fmt.Errorf("file: %w", err)
	}

	if c.Logging.Transcript != "" {
		if c.Logging.Transcript == c.Logging.File {
			return fmt.Errorf("transcript must not be the same file as the log")
		}
		if err := ensureDir(c.Logging.Transcript); err != nil {
			return fmt.Errorf("transcript: %w", err)
		}
	}

	if c.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be positive, got: %d", c.Logging.MaxSizeMB)
	}

	if c.Logging.MaxBackups < 0 {
		return fmt.Errorf("max_backups must be non-negative, got: %d", c.Logging.MaxBackups)
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %s, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// ensureDir creates the directory holding path if it does not exist yet
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("directory %s does not exist and cannot be created: %w", dir, err)
		}
	}
	return nil
}
