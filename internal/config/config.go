package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Safe mode limits.
const (
	SafeMaxConcurrency = 8
	SafeMinDelay       = 200 * time.Millisecond
)

// DefaultSubdomainSources are the certificate-transparency lookups queried by
// the subdomains module. {domain} is replaced with the target.
var DefaultSubdomainSources = []string{
	"https://crt.sh/?q=%25.{domain}&output=json",
	"https://api.certspotter.com/v1/issuances?domain={domain}&include_subdomains=true&expand=dns_names",
}

// ErrDomainRequired is returned by Load when no target domain was supplied.
var ErrDomainRequired = errors.New("no domain provided, use -d example.com")

// Options holds all configuration for a reconx run.
type Options struct {
	// Target
	Domain string `mapstructure:"domain"`

	// Module selection. None selected means all.
	Full        bool `mapstructure:"full"`
	Subdomains  bool `mapstructure:"sub"`
	Probe       bool `mapstructure:"probe"`
	Fingerprint bool `mapstructure:"finger"`
	DirBrute    bool `mapstructure:"dir"`

	// Performance
	Concurrency      int           `mapstructure:"concurrency"`
	DelaySeconds     float64       `mapstructure:"delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Safe             bool          `mapstructure:"safe"`
	GlobalRate       float64       `mapstructure:"rate"` // requests/sec across all workers, 0 = off
	AdaptiveThrottle bool          `mapstructure:"adaptive-throttle"`

	// Inputs
	WordlistPath     string   `mapstructure:"wordlist"` // empty = embedded
	SubdomainSources []string `mapstructure:"sources"`

	// HTTP
	Headers   map[string]string `mapstructure:"-"`
	UserAgent string            `mapstructure:"user-agent"`
	Proxy     string            `mapstructure:"proxy"`
	Insecure  bool              `mapstructure:"insecure"`

	// Output
	ReportsDir string `mapstructure:"reports-dir"`
	Quiet      bool   `mapstructure:"quiet"`
	NoColor    bool   `mapstructure:"no-color"`
	Verbose    bool   `mapstructure:"verbose"`

	Logger LoggerConfig `mapstructure:",squash"`
}

// LoggerConfig selects the zap encoder and level.
type LoggerConfig struct {
	Level   string `mapstructure:"log-level"`
	Format  string `mapstructure:"log-format"` // console or json
	NoColor bool   `mapstructure:"-"`
}

// Load decodes a viper instance into Options, fills defaults, validates the
// result and applies safe mode.
func Load(v *viper.Viper) (*Options, error) {
	opts := &Options{}
	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := opts.Normalize(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Normalize fills defaults, validates and applies safe-mode caps in place.
func (o *Options) Normalize() error {
	o.Domain = strings.TrimSpace(o.Domain)
	if o.Domain == "" {
		return ErrDomainRequired
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", o.Concurrency)
	}
	if o.DelaySeconds < 0 {
		return fmt.Errorf("--delay must not be negative, got %g", o.DelaySeconds)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive, got %s", o.Timeout)
	}
	if o.GlobalRate < 0 {
		return fmt.Errorf("--rate must not be negative, got %g", o.GlobalRate)
	}
	if o.ReportsDir == "" {
		o.ReportsDir = "reports"
	}
	if len(o.SubdomainSources) == 0 {
		o.SubdomainSources = append([]string(nil), DefaultSubdomainSources...)
	}
	if o.Logger.Level == "" {
		o.Logger.Level = "info"
	}
	if o.Verbose {
		o.Logger.Level = "debug"
	}
	if o.Logger.Format == "" {
		o.Logger.Format = "console"
	}
	o.Logger.NoColor = o.NoColor

	if o.Safe {
		o.Concurrency = min(o.Concurrency, SafeMaxConcurrency)
		if o.Delay() < SafeMinDelay {
			o.DelaySeconds = SafeMinDelay.Seconds()
		}
	}

	if !o.Full && !o.Subdomains && !o.Probe && !o.Fingerprint && !o.DirBrute {
		o.Full = true
	}
	return nil
}

// Delay returns the per-worker pacing delay.
func (o *Options) Delay() time.Duration {
	return time.Duration(o.DelaySeconds * float64(time.Second))
}

// Enabled reports whether the named module should run.
func (o *Options) Enabled(module string) bool {
	if o.Full {
		return true
	}
	switch module {
	case "subdomains":
		return o.Subdomains
	case "http_probe":
		return o.Probe
	case "fingerprint":
		return o.Fingerprint
	case "dirbrute":
		return o.DirBrute
	}
	return false
}
