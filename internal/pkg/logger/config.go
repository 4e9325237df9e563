package logger

import (
	"errors"
	"slices"
	"strings"
)

var validLevels = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}

// Config defines the logger configuration
type Config struct {
	Level            string     `mapstructure:"level"`  // debug, info, warn, error
	Format           string     `mapstructure:"format"` // json, console
	Output           string     `mapstructure:"output"` // console, file, both
	File             FileConfig `mapstructure:"file"`
	EnableCaller     bool       `mapstructure:"enablecaller"`
	EnableStacktrace bool       `mapstructure:"enablestacktrace"`
}

// FileConfig is the lumberjack rotation setup used when Output includes a file.
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"` // MB
	MaxAge     int    `mapstructure:"maxage"`  // days
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "json",
		Output:           "console",
		EnableCaller:     true,
		EnableStacktrace: true,
		File: FileConfig{
			Filename:   "logs/chat-proxy.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
	}
}

func (c *Config) writesFile() bool {
	return c.Output == "file" || c.Output == "both"
}

// Validate validates the logger configuration
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return errors.New("invalid log level, must be one of: " + strings.Join(validLevels, ", "))
	}

	if c.Format != "json" && c.Format != "console" {
		return errors.New("invalid log format, must be 'json' or 'console'")
	}

	switch c.Output {
	case "console", "file", "both":
	default:
		return errors.New("invalid log output, must be 'console', 'file' or 'both'")
	}

	if !c.writesFile() {
		return nil
	}
	switch {
	case c.File.Filename == "":
		return errors.New("log file filename is required when output is 'file' or 'both'")
	case c.File.MaxSize <= 0:
		return errors.New("log file maxsize must be greater than 0")
	case c.File.MaxAge <= 0:
		return errors.New("log file maxage must be greater than 0")
	case c.File.MaxBackups < 0:
		return errors.New("log file maxbackups must be greater than or equal to 0")
	}
	return nil
}
