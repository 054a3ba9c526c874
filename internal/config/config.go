// Package config loads the sidecar configuration for Weft.
//
// Configuration is read from a .weft.yaml file next to the process
// working directory. A missing, unreadable, or malformed file is never
// fatal: Weft degrades to defaults with a warning log.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/weftlabs/weft/internal/errors"
)

// Config file names searched in the working directory, in order.
var configFileNames = []string{".weft.yaml", ".weft.yml"}

// DefaultProcessDelay is the quiet period before a changed file is
// considered stable.
const DefaultProcessDelay = 300 * time.Millisecond

// Config is the complete Weft configuration.
type Config struct {
	// Monitor is the root directory watched for template changes.
	// Defaults to the directory the process runs in.
	Monitor string `yaml:"monitor"`

	// Extensions are the template file extensions to watch.
	Extensions []string `yaml:"extensions"`

	// Delay is the debounce quiet period as a duration string
	// (e.g. "300ms").
	Delay string `yaml:"delay"`

	// OutputExtension is the default extension for rendered files when
	// no output directive overrides the destination.
	OutputExtension string `yaml:"output_extension"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Monitor:         ".",
		Extensions:      []string{".weft"},
		Delay:           DefaultProcessDelay.String(),
		OutputExtension: ".html",
		LogLevel:        "info",
	}
}

// Load reads the sidecar config from dir, fills unset fields with
// defaults, and applies environment overrides. Load never fails: any
// problem with the file is logged as a warning and defaults are used.
func Load(dir string) *Config {
	cfg := Default()

	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("cannot read config file, using defaults",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
			continue
		}

		var loaded Config
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			slog.Warn("malformed config file, using defaults",
				slog.String("path", path),
				slog.String("error", err.Error()))
			break
		}

		cfg.mergeWith(&loaded)
		break
	}

	cfg.applyEnvOverrides()
	return cfg
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Monitor != "" {
		c.Monitor = other.Monitor
	}
	if len(other.Extensions) > 0 {
		c.Extensions = other.Extensions
	}
	if other.Delay != "" {
		c.Delay = other.Delay
	}
	if other.OutputExtension != "" {
		c.OutputExtension = other.OutputExtension
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies WEFT_* environment variables, which take
// priority over the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WEFT_MONITOR"); v != "" {
		c.Monitor = v
	}
	if v := os.Getenv("WEFT_DELAY"); v != "" {
		c.Delay = v
	}
	if v := os.Getenv("WEFT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("WEFT_EXTENSIONS"); v != "" {
		var exts []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				exts = append(exts, e)
			}
		}
		if len(exts) > 0 {
			c.Extensions = exts
		}
	}
}

// ProcessDelay parses the configured delay, falling back to the
// default when the string is malformed.
func (c *Config) ProcessDelay() time.Duration {
	d, err := time.ParseDuration(c.Delay)
	if err != nil || d <= 0 {
		slog.Warn("invalid delay in config, using default",
			slog.String("delay", c.Delay),
			slog.String("default", DefaultProcessDelay.String()))
		return DefaultProcessDelay
	}
	return d
}

// Validate checks that the configuration can drive the engine.
func (c *Config) Validate() error {
	if len(c.Extensions) == 0 {
		return errors.InvalidConfiguration("no extensions configured to watch")
	}
	if c.Monitor == "" {
		return errors.InvalidConfiguration("monitor path is empty")
	}
	return nil
}
