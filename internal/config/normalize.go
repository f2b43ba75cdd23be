package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEncoder(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() error {
	c.Encoder.Command = strings.TrimSpace(c.Encoder.Command)

	candidates := make([]string, 0, len(c.Encoder.Candidates)+1)
	seen := make(map[string]struct{}, len(c.Encoder.Candidates)+1)
	add := func(raw, field string) error {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if _, ok := seen[expanded]; ok {
			return nil
		}
		seen[expanded] = struct{}{}
		candidates = append(candidates, expanded)
		return nil
	}
	if value, ok := os.LookupEnv(EncoderEnvVar); ok {
		if err := add(value, EncoderEnvVar); err != nil {
			return err
		}
	}
	for _, candidate := range c.Encoder.Candidates {
		if err := add(candidate, "encoder.candidates"); err != nil {
			return err
		}
	}
	if len(candidates) == 0 {
		candidates = nil
	}
	c.Encoder.Candidates = candidates

	c.Encoder.PrimaryExtension = normalizeExtension(c.Encoder.PrimaryExtension, defaultPrimaryExtension)
	c.Encoder.SubtitleExtension = normalizeExtension(c.Encoder.SubtitleExtension, defaultSubtitleExtension)
	return nil
}

func normalizeExtension(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, ".") {
		value = "." + value
	}
	return value
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
