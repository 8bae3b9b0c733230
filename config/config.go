// Package config loads the shlsp settings: defaults, then the TOML file,
// then command line overrides, then the client's workspace settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/corymhall/shlsp/logger"
	"github.com/corymhall/shlsp/parser"
	"github.com/corymhall/shlsp/shellcheck"
	"github.com/corymhall/shlsp/telemetry"
)

const (
	AppName               = "shlsp"
	DefaultConfigFileName = "config.toml"
	// Section is the workspace/configuration section holding our settings.
	Section = "shlsp"

	DefaultExecutable = "shellcheck"
	DefaultTabWidth   = 8
	DefaultDebounce   = 300 * time.Millisecond
)

// Config holds the combined configuration.
type Config struct {
	Shellcheck ShellcheckConfig `toml:"shellcheck" json:"shellcheck"`
	Templates  TemplatesConfig  `toml:"templates" json:"templates"`
	Logger     logger.Config    `toml:"logger" json:"logger"`
	Telemetry  telemetry.Config `toml:"telemetry" json:"telemetry"`
	Server     ServerConfig     `toml:"server" json:"server"`
}

type ShellcheckConfig struct {
	// Path is the linter executable, a name looked up on PATH or a path.
	Path     string   `toml:"path" json:"path"`
	Timeout  Duration `toml:"timeout" json:"timeout"`
	Exclude  []string `toml:"exclude" json:"exclude"`
	Severity string   `toml:"severity" json:"severity"`
	// DefaultShell is used when a script has no recognised shebang.
	DefaultShell string `toml:"default_shell" json:"default_shell"`
	// Charset is the WHATWG name of the linter's stdin/stdout encoding.
	Charset  string `toml:"charset" json:"charset"`
	TabWidth int    `toml:"tab_width" json:"tab_width"`
	// MaxInFlight is the number of concurrent linter processes.
	MaxInFlight int `toml:"max_in_flight" json:"max_in_flight"`
}

type TemplatesConfig struct {
	// Delimiters are "open close" pairs such as "{{ }}".
	Delimiters []string `toml:"delimiters" json:"delimiters"`
}

type ServerConfig struct {
	// Debounce is the quiet period after an edit before linting.
	Debounce Duration `toml:"debounce" json:"debounce"`
}

// Duration reads "10s" style strings from both TOML and JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// NewDefaultConfig creates a Config struct with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Shellcheck: ShellcheckConfig{
			Path:         DefaultExecutable,
			Timeout:      Duration{shellcheck.DefaultTimeout},
			Severity:     shellcheck.DefaultSeverity,
			DefaultShell: shellcheck.DefaultShell,
			TabWidth:     DefaultTabWidth,
			MaxInFlight:  1,
		},
		Templates: TemplatesConfig{
			Delimiters: []string{"{{ }}", "{% %}"},
		},
		Logger:    logger.Config{Level: "info"},
		Telemetry: telemetry.DefaultConfig(),
		Server:    ServerConfig{Debounce: Duration{DefaultDebounce}},
	}
}

// DefaultPath is the configuration file used when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, DefaultConfigFileName)
}

// Load reads path over the defaults, applies flag overrides and validates
// the result. A missing file is not an error. Keys the file sets that no
// field knows about are returned so the caller can warn about them.
func Load(path string, ov *Overrides) (*Config, []string, error) {
	cfg := NewDefaultConfig()
	undecoded, err := cfg.loadFile(path)
	if err != nil {
		return nil, nil, err
	}
	ov.Apply(cfg)
	if err := cfg.validate(); err != nil {
		return nil, undecoded, err
	}
	return cfg, undecoded, nil
}

func (c *Config) loadFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	md, err := toml.DecodeFile(path, c)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	var undecoded []string
	for _, key := range md.Undecoded() {
		undecoded = append(undecoded, key.String())
	}
	return undecoded, nil
}

// WithSettings returns a copy of c with the client's settings section
// laid over it. Null or empty settings leave c unchanged.
func (c *Config) WithSettings(settings json.RawMessage) (*Config, error) {
	next := c.Clone()
	trimmed := strings.TrimSpace(string(settings))
	if trimmed == "" || trimmed == "null" {
		return next, nil
	}
	if err := json.Unmarshal(settings, next); err != nil {
		return nil, fmt.Errorf("decoding %s settings: %w", Section, err)
	}
	if err := next.validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	next := *c
	next.Shellcheck.Exclude = append([]string(nil), c.Shellcheck.Exclude...)
	next.Templates.Delimiters = append([]string(nil), c.Templates.Delimiters...)
	return &next
}

// validate checks config values and resets empty ones to defaults.
func (c *Config) validate() error {
	defaults := NewDefaultConfig()

	if c.Shellcheck.Path == "" {
		c.Shellcheck.Path = defaults.Shellcheck.Path
	}
	if c.Shellcheck.Timeout.Duration <= 0 {
		c.Shellcheck.Timeout = defaults.Shellcheck.Timeout
	}
	if c.Shellcheck.Severity == "" {
		c.Shellcheck.Severity = defaults.Shellcheck.Severity
	}
	if c.Shellcheck.DefaultShell == "" {
		c.Shellcheck.DefaultShell = defaults.Shellcheck.DefaultShell
	}
	if c.Shellcheck.TabWidth <= 0 {
		c.Shellcheck.TabWidth = defaults.Shellcheck.TabWidth
	}
	if c.Shellcheck.MaxInFlight <= 0 {
		c.Shellcheck.MaxInFlight = defaults.Shellcheck.MaxInFlight
	}
	if c.Server.Debounce.Duration < 0 {
		c.Server.Debounce = defaults.Server.Debounce
	}
	if c.Logger.Level == "" {
		c.Logger.Level = defaults.Logger.Level
	}

	var errs []error
	if err := c.Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, code := range c.Shellcheck.Exclude {
		if shellcheck.NormalizeCode(code) == "" {
			errs = append(errs, fmt.Errorf("invalid excluded code %q", code))
		}
	}
	if _, err := shellcheck.Charset(c.Shellcheck.Charset); err != nil {
		errs = append(errs, err)
	}
	for _, d := range c.Templates.Delimiters {
		if _, ok := parser.ParseDelimiter(d); !ok {
			errs = append(errs, fmt.Errorf("invalid template delimiter %q, expected \"open close\"", d))
		}
	}
	if _, err := logger.ParseLevel(c.Logger.Level); err != nil {
		errs = append(errs, err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Params are the linter options for a script in the given dialect.
func (c *Config) Params() shellcheck.Params {
	return shellcheck.Params{
		Shell:    c.Shellcheck.DefaultShell,
		Severity: c.Shellcheck.Severity,
		Exclude:  c.Shellcheck.Exclude,
	}
}

// Delimiters returns the parsed template delimiters. Invalid entries were
// rejected by validate.
func (c *Config) Delimiters() []parser.Delimiter {
	var delims []parser.Delimiter
	for _, s := range c.Templates.Delimiters {
		if d, ok := parser.ParseDelimiter(s); ok {
			delims = append(delims, d)
		}
	}
	return delims
}

// Invoker builds the process invoker for the linter settings.
func (c *Config) Invoker() *shellcheck.ExecInvoker {
	return &shellcheck.ExecInvoker{
		Timeout: c.Shellcheck.Timeout.Duration,
		Charset: c.Shellcheck.Charset,
	}
}

// Excludes reports whether code is already disabled.
func (c *Config) Excludes(code string) bool {
	code = shellcheck.NormalizeCode(code)
	for _, ex := range c.Shellcheck.Exclude {
		if shellcheck.NormalizeCode(ex) == code {
			return true
		}
	}
	return false
}
