package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zinc-sig/asksnap/internal/browser"
)

const (
	// EnvPrefix is the environment prefix for configuration values,
	// e.g. ASKSNAP_CONFIG_HEADLESS=true.
	EnvPrefix = "ASKSNAP_CONFIG"

	// ExampleFileName is written next to a missing config file.
	ExampleFileName = "config.example.json"

	PlaceholderURL      = "YOUR_WEBSITE_URL_HERE"
	PlaceholderSelector = "YOUR_TEXTAREA_CSS_SELECTOR"

	DefaultOutputDir      = "screenshots"
	DefaultWaitTime       = 10
	DefaultElementTimeout = 10
)

var (
	// ErrConfigMissing is returned by Load when the config file does not exist.
	ErrConfigMissing = errors.New("config file not found")

	// ErrNotConfigured is returned by Validate while placeholders are still present.
	ErrNotConfigured = errors.New("website URL and CSS selectors are not configured")
)

// Config is the flat key-value configuration of an automation run.
type Config struct {
	WebsiteURL       string  `json:"website_url" yaml:"website_url"`
	TextareaSelector string  `json:"textarea_selector" yaml:"textarea_selector"`
	SubmitSelector   string  `json:"submit_selector" yaml:"submit_selector"`
	WaitTime         float64 `json:"wait_time" yaml:"wait_time"` // seconds
	Browser          string  `json:"browser" yaml:"browser"`
	Headless         bool    `json:"headless" yaml:"headless"`
	OutputDir        string  `json:"output_dir" yaml:"output_dir"`
	KeepBrowserOpen  bool    `json:"keep_browser_open" yaml:"keep_browser_open"`
	Engine           string  `json:"engine" yaml:"engine"`
	ElementTimeout   float64 `json:"element_timeout" yaml:"element_timeout"` // seconds
}

// Default returns the configuration used when a key is not set anywhere.
func Default() *Config {
	return &Config{
		WebsiteURL:       PlaceholderURL,
		TextareaSelector: PlaceholderSelector,
		SubmitSelector:   "",
		WaitTime:         DefaultWaitTime,
		Browser:          string(browser.Chrome),
		Headless:         false,
		OutputDir:        DefaultOutputDir,
		KeepBrowserOpen:  false,
		Engine:           browser.EnginePlaywright,
		ElementTimeout:   DefaultElementTimeout,
	}
}

// LoadOptions carries the command-line side of configuration.
type LoadOptions struct {
	// Overrides are key=value pairs applied after the file.
	Overrides []string
	// OutputDir, when non-empty, wins over every other source.
	OutputDir string
	// DefaultOutputDir replaces the built-in output default.
	DefaultOutputDir string
}

// Load builds the configuration from defaults, ASKSNAP_CONFIG* variables,
// the file at path and opts. A missing file produces an example file and
// an ErrConfigMissing error.
func Load(path string, opts LoadOptions) (*Config, error) {
	cfg := Default()
	if opts.DefaultOutputDir != "" {
		cfg.OutputDir = opts.DefaultOutputDir
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
		examplePath := filepath.Join(filepath.Dir(path), ExampleFileName)
		if werr := WriteExample(examplePath, cfg); werr != nil {
			return nil, fmt.Errorf("%w: %s (writing example failed: %v)", ErrConfigMissing, path, werr)
		}
		return nil, &MissingError{ConfigPath: path, ExamplePath: examplePath}
	}

	values, err := BuildWithPrefix(EnvPrefix, "", opts.Overrides, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.apply(values); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	return cfg, nil
}

// apply overlays values onto c. Unknown keys are ignored.
func (c *Config) apply(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

// Validate checks that the config can drive a run.
func (c *Config) Validate() error {
	if c.WebsiteURL == "" || c.WebsiteURL == PlaceholderURL ||
		c.TextareaSelector == "" || c.TextareaSelector == PlaceholderSelector {
		return ErrNotConfigured
	}
	if _, err := browser.ParseKind(c.Browser); err != nil {
		return err
	}
	if !browser.HasEngine(c.Engine) {
		return fmt.Errorf("unknown browser engine: %s", c.Engine)
	}
	if c.WaitTime < 0 {
		return fmt.Errorf("wait_time must not be negative")
	}
	if c.ElementTimeout <= 0 {
		return fmt.Errorf("element_timeout must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

// Wait is the time to wait for a reply after submitting.
func (c *Config) Wait() time.Duration {
	return time.Duration(c.WaitTime * float64(time.Second))
}

// ElementWait is the wait window for locating page elements.
func (c *Config) ElementWait() time.Duration {
	return time.Duration(c.ElementTimeout * float64(time.Second))
}

// WriteExample writes cfg as indented JSON to path.
func WriteExample(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(cfg)
}

// MissingError reports a missing config file and where the example went.
type MissingError struct {
	ConfigPath  string
	ExamplePath string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s; example written to %s", ErrConfigMissing, e.ConfigPath, e.ExamplePath)
}

func (e *MissingError) Is(target error) bool {
	return target == ErrConfigMissing
}

// Instructions returns the steps that get a user from the example file to a
// working configuration.
func Instructions(examplePath string) []string {
	return []string{
		fmt.Sprintf("1. Edit %s", examplePath),
		"2. Fill in website_url and textarea_selector (submit_selector is optional)",
		"3. Rename it to config.json or pass it with --config",
	}
}
