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
	c.normalizePrograms()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		if value, ok := os.LookupEnv("CADENCE_SOURCE_DIR"); ok {
			c.Paths.SourceDir = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Paths.TargetDir) == "" {
		if value, ok := os.LookupEnv("CADENCE_TARGET_DIR"); ok {
			c.Paths.TargetDir = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}

	var err error
	if c.Paths.SourceDir, err = expandPath(strings.TrimSpace(c.Paths.SourceDir)); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.TargetDir, err = expandPath(strings.TrimSpace(c.Paths.TargetDir)); err != nil {
		return fmt.Errorf("paths.target_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePrograms() {
	c.Decoder.Binary = strings.TrimSpace(c.Decoder.Binary)
	if c.Decoder.Binary == "" {
		c.Decoder.Binary = defaultDecoderBinary
	}
	if c.Decoder.Options == nil {
		c.Decoder.Options = defaultDecoderOptions()
	}
	c.Decoder.SourceExtension = normalizeExtension(c.Decoder.SourceExtension, defaultSourceExtension)

	c.Encoder.Binary = strings.TrimSpace(c.Encoder.Binary)
	if c.Encoder.Binary == "" {
		c.Encoder.Binary = defaultEncoderBinary
	}
	if c.Encoder.Options == nil {
		c.Encoder.Options = defaultEncoderOptions()
	}
	c.Encoder.Extension = normalizeExtension(c.Encoder.Extension, defaultTargetExtension)
	c.Encoder.TagStyle = strings.ToLower(strings.TrimSpace(c.Encoder.TagStyle))
	if c.Encoder.TagStyle == "" {
		c.Encoder.TagStyle = "none"
	}

	c.Metadata.FFprobeBinary = strings.TrimSpace(c.Metadata.FFprobeBinary)
	if c.Metadata.FFprobeBinary == "" {
		c.Metadata.FFprobeBinary = defaultFFprobeBinary
	}
	c.Metadata.FFmpegBinary = strings.TrimSpace(c.Metadata.FFmpegBinary)
	if c.Metadata.FFmpegBinary == "" {
		c.Metadata.FFmpegBinary = defaultFFmpegBinary
	}

	if c.Conversion.ChunkSize == 0 {
		c.Conversion.ChunkSize = defaultChunkSize
	}
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
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
}
