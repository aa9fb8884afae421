package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Retry struct {
	MaxRetries int           `yaml:"max_retries"`
	Delay      time.Duration `yaml:"delay"`
}

type Recovery struct {
	Enabled       bool          `yaml:"enabled"`
	Cooldown      time.Duration `yaml:"cooldown"`
	MaxRecoveries int           `yaml:"max_recoveries"`
}

type Timeouts struct {
	Chapter  time.Duration `yaml:"chapter"`
	Link     time.Duration `yaml:"link"`
	Recovery time.Duration `yaml:"recovery"`
}

type Config struct {
	Output          string        `yaml:"output"`
	MaxChapters     int           `yaml:"max_chapters"`
	MaxCharsPerPage int           `yaml:"max_chars_per_page"`
	RequestDelay    time.Duration `yaml:"request_delay"`

	Retry    Retry    `yaml:"retry"`
	Recovery Recovery `yaml:"recovery"`
	Timeouts Timeouts `yaml:"timeouts"`

	DefaultURL string `yaml:"default_url"`

	Cookie           string            `yaml:"cookie"`
	CookieFile       string            `yaml:"cookie_file"`
	UserAgent        string            `yaml:"user_agent"`
	Headers          map[string]string `yaml:"headers,omitempty"`
	CloudflareBypass bool              `yaml:"cloudflare_bypass"`

	Debug       bool   `yaml:"debug"`
	MetricsAddr string `yaml:"metrics_addr"`
	Journal     bool   `yaml:"journal"`
}

// Options carries command-line overrides. Zero values leave the profile
// untouched; the *bool fields are set only when the flag was given.
type Options struct {
	IgnoreConfig bool
	Debug        bool

	Output          string
	MaxChapters     int
	MaxCharsPerPage int
	RequestDelay    time.Duration

	MaxRetries int
	RetryDelay time.Duration

	Recovery         *bool
	RecoveryCooldown time.Duration
	MaxRecoveries    int

	DefaultURL string

	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool

	MetricsAddr string
	Journal     *bool
}

func DefaultConfig() *Config {
	return &Config{
		Output:          ".",
		MaxChapters:     999,
		MaxCharsPerPage: 2000,
		RequestDelay:    60 * time.Second,
		Retry: Retry{
			MaxRetries: 3,
			Delay:      10 * time.Second,
		},
		Recovery: Recovery{
			Enabled:       true,
			Cooldown:      60 * time.Second,
			MaxRecoveries: 5,
		},
		Timeouts: Timeouts{
			Chapter:  15 * time.Second,
			Link:     10 * time.Second,
			Recovery: 15 * time.Second,
		},
		Journal: true,
	}
}

func (c *Config) Validate() error {
	switch {
	case c.MaxChapters < 1:
		return errors.New("max_chapters must be at least 1")
	case c.MaxCharsPerPage < 1:
		return errors.New("max_chars_per_page must be at least 1")
	case c.RequestDelay < 0:
		return errors.New("request_delay cannot be negative")
	case c.Retry.MaxRetries < 0:
		return errors.New("retry.max_retries cannot be negative")
	case c.Recovery.MaxRecoveries < 0:
		return errors.New("recovery.max_recoveries cannot be negative")
	}
	return nil
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// loadYAML decodes path over the defaults so that a profile only needs the
// keys it changes.
func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadFile reads one profile file over the defaults.
func LoadFile(path string) (*Config, error) {
	return loadYAML(path)
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(built-in defaults, profiles ignored)", nil
	}

	activePath, err := ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(built-in defaults, no active profile)\n`bookharvest config init` writes a profile you can edit\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.MaxChapters != 0 {
		c.MaxChapters = o.MaxChapters
	}
	if o.MaxCharsPerPage != 0 {
		c.MaxCharsPerPage = o.MaxCharsPerPage
	}
	if o.RequestDelay != 0 {
		c.RequestDelay = o.RequestDelay
	}
	if o.MaxRetries != 0 {
		c.Retry.MaxRetries = o.MaxRetries
	}
	if o.RetryDelay != 0 {
		c.Retry.Delay = o.RetryDelay
	}
	if o.Recovery != nil {
		c.Recovery.Enabled = *o.Recovery
	}
	if o.RecoveryCooldown != 0 {
		c.Recovery.Cooldown = o.RecoveryCooldown
	}
	if o.MaxRecoveries != 0 {
		c.Recovery.MaxRecoveries = o.MaxRecoveries
	}
	if o.Debug {
		c.Debug = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if o.MetricsAddr != "" {
		c.MetricsAddr = o.MetricsAddr
	}
	if o.Journal != nil {
		c.Journal = *o.Journal
	}
}

func normalizeDefaults(c *Config) {
	d := DefaultConfig()
	if c.Output == "" {
		c.Output = d.Output
	}
	if c.MaxChapters == 0 {
		c.MaxChapters = d.MaxChapters
	}
	if c.MaxCharsPerPage == 0 {
		c.MaxCharsPerPage = d.MaxCharsPerPage
	}
	if c.Timeouts.Chapter == 0 {
		c.Timeouts.Chapter = d.Timeouts.Chapter
	}
	if c.Timeouts.Link == 0 {
		c.Timeouts.Link = d.Timeouts.Link
	}
	if c.Timeouts.Recovery == 0 {
		c.Timeouts.Recovery = d.Timeouts.Recovery
	}
}

func (c *Config) Print() {
	fmt.Printf(" -output: %s\n", c.Output)
	fmt.Printf(" -max_chapters: %d\n", c.MaxChapters)
	fmt.Printf(" -max_chars_per_page: %d\n", c.MaxCharsPerPage)
	fmt.Printf(" -request_delay: %s\n", c.RequestDelay)
	fmt.Printf(" -retry: %d x %s\n", c.Retry.MaxRetries, c.Retry.Delay)
	if c.Recovery.Enabled {
		fmt.Printf(" -recovery: up to %d, cooldown %s\n", c.Recovery.MaxRecoveries, c.Recovery.Cooldown)
	} else {
		fmt.Println(" -recovery: disabled")
	}
	fmt.Printf(" -timeouts: chapter %s, link %s, recovery %s\n",
		c.Timeouts.Chapter, c.Timeouts.Link, c.Timeouts.Recovery)
	if c.DefaultURL != "" {
		fmt.Printf(" -url: %s\n", c.DefaultURL)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if len(c.Headers) > 0 {
		fmt.Printf(" -headers: %d set\n", len(c.Headers))
	}
	if c.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.MetricsAddr != "" {
		fmt.Printf(" -metrics_addr: %s\n", c.MetricsAddr)
	}
	fmt.Printf(" -journal: %t\n", c.Journal)
}
