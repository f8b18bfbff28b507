package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/narrator/indent"
	"github.com/pithecene-io/narrator/log"
	"github.com/pithecene-io/narrator/report"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Storage backends for report artifacts.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Config represents a narrator.yaml configuration file.
// Values omitted from the file keep their Default() value.
// CLI flags always override config values.
type Config struct {
	// Enabled false makes every channel a pure pass-through.
	Enabled bool          `yaml:"enabled"`
	Indent  IndentConfig  `yaml:"indent"`
	Console ConsoleConfig `yaml:"console"`
	Report  ReportConfig  `yaml:"report"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// IndentConfig controls console indentation.
type IndentConfig struct {
	Char    string `yaml:"char"`
	Size    int    `yaml:"size"`
	Enabled bool   `yaml:"enabled"`
}

// ConsoleConfig controls the console adapter.
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Color   bool   `yaml:"color"`
	Format  string `yaml:"format"`
}

// ReportConfig controls the report adapter and where artifacts are stored.
type ReportConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Format      string `yaml:"format"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// Notifier types.
const (
	NotifyWebhook = "webhook"
	NotifyRedis   = "redis"
)

// NotifyConfig selects where run completion events are published.
// An empty Type disables notification.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	def := indent.DefaultConfig()
	return &Config{
		Enabled: true,
		Indent: IndentConfig{
			Char:    def.Char,
			Size:    def.Size,
			Enabled: def.Enabled,
		},
		Console: ConsoleConfig{
			Enabled: true,
			Format:  string(log.FormatConsole),
		},
		Report: ReportConfig{
			Enabled: true,
			Format:  string(report.FormatJSON),
			Backend: BackendFS,
			Path:    "./narrator-results",
		},
	}
}

// Tracker returns the nesting tracker configuration.
func (c IndentConfig) Tracker() indent.Config {
	return indent.Config{Char: c.Char, Size: c.Size, Enabled: c.Enabled}
}

// Validate reports every problem found, each wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Indent.Size < 0 {
		invalid("indent.size must not be negative, got %d", c.Indent.Size)
	}
	if _, err := log.ParseFormat(c.Console.Format); err != nil {
		invalid("console.format: %v", err)
	}
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		invalid("report.format: %v", err)
	}
	switch c.Report.Backend {
	case BackendFS, BackendS3:
	default:
		invalid("report.backend must be fs or s3, got %q", c.Report.Backend)
	}
	if c.Report.Enabled && c.Report.Path == "" {
		invalid("report.path is required when reports are enabled")
	}
	switch c.Notify.Type {
	case "":
	case NotifyWebhook, NotifyRedis:
		if c.Notify.URL == "" {
			invalid("notify.url is required when notify.type is %s", c.Notify.Type)
		}
	default:
		invalid("notify.type must be webhook or redis, got %q", c.Notify.Type)
	}
	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		invalid("notify.retries must not be negative, got %d", *c.Notify.Retries)
	}
	if c.Notify.Timeout.Duration < 0 {
		invalid("notify.timeout must not be negative, got %s", c.Notify.Timeout)
	}

	return errors.Join(errs...)
}
