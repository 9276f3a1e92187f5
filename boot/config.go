package boot

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/ehciboot/kbd"
	"github.com/ardnew/ehciboot/pkg"
	"github.com/ardnew/ehciboot/task"
)

// maxConfigSize bounds the configuration file size.
const maxConfigSize = 1 << 20

// Config holds boot settings loaded from YAML.
type Config struct {
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text or json

	// ScancodeCapacity is the keyboard queue capacity.
	ScancodeCapacity int `yaml:"scancode_capacity"`

	// MaxTasks is the executor task limit.
	MaxTasks int `yaml:"max_tasks"`

	// ResetTimeout bounds the wait for HCRESET to clear. Zero waits forever.
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// Progress shows a progress bar while buses are scanned.
	Progress bool `yaml:"progress"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		LogLevel:         "info",
		LogFormat:        "text",
		ScancodeCapacity: kbd.DefaultCapacity,
		MaxTasks:         task.DefaultMaxTasks,
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		return cfg, err
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("%w: config %s is %d bytes", pkg.ErrInvalidParameter, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, ok := pkg.ParseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log_level %q", pkg.ErrInvalidParameter, c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", pkg.ErrInvalidParameter, c.LogFormat)
	}
	if c.ScancodeCapacity < 0 {
		return fmt.Errorf("%w: scancode_capacity %d", pkg.ErrInvalidParameter, c.ScancodeCapacity)
	}
	if c.MaxTasks < 0 {
		return fmt.Errorf("%w: max_tasks %d", pkg.ErrInvalidParameter, c.MaxTasks)
	}
	if c.ResetTimeout < 0 {
		return fmt.Errorf("%w: reset_timeout %s", pkg.ErrInvalidParameter, c.ResetTimeout)
	}
	return nil
}

// ApplyLogging configures the pkg logger from LogFormat and LogLevel.
func (c Config) ApplyLogging() {
	if strings.EqualFold(c.LogFormat, "json") {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	} else {
		pkg.SetLogFormat(pkg.LogFormatText)
	}
	if level, ok := pkg.ParseLogLevel(c.LogLevel); ok {
		pkg.SetLogLevel(level)
	}
}
