package config

import (
	"errors"
	"fmt"

	"cadence/internal/metadata"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePrograms(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceDir != "" && c.Paths.SourceDir == c.Paths.TargetDir {
		return errors.New("paths.source_dir and paths.target_dir must differ")
	}
	return nil
}

func (c *Config) validatePrograms() error {
	if c.Decoder.SourceExtension == c.Encoder.Extension {
		return fmt.Errorf("decoder.source_extension and encoder.extension are both %q", c.Encoder.Extension)
	}
	if _, err := metadata.ParseTagStyle(c.Encoder.TagStyle); err != nil {
		return fmt.Errorf("encoder.tag_style: %w", err)
	}
	return nil
}

func (c *Config) validateConversion() error {
	if c.Conversion.ChunkSize < 0 {
		return errors.New("conversion.chunk_size must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
