package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if strings.ContainsAny(c.Encoder.Command, `/\`) {
		return fmt.Errorf("encoder.command must be a bare executable name, got %q (use encoder.candidates for absolute paths)", c.Encoder.Command)
	}
	for _, candidate := range c.Encoder.Candidates {
		if !filepath.IsAbs(candidate) {
			return fmt.Errorf("encoder.candidates entry %q must be an absolute path", candidate)
		}
	}
	if c.Encoder.PrimaryExtension == c.Encoder.SubtitleExtension {
		return fmt.Errorf("encoder.primary_extension and encoder.subtitle_extension must differ (both %q)", c.Encoder.PrimaryExtension)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind must be host:port: %w", err)
	}
	return nil
}
