/*
Copyright (c) 2025 The orc Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
)

// Environment variables that override file values
const (
	EnvRegistrationToken = "ORC_REGISTRATION_TOKEN"
	EnvConsoleURL        = "ORC_CONSOLE_URL"
	EnvNamespace         = "ORC_NAMESPACE"
	EnvGitHubToken       = "ORC_GITHUB_TOKEN"
	EnvTriggerSecret     = "ORC_TRIGGER_SECRET"
	EnvDryRun            = "ORC_DRY_RUN"
)

const (
	DefaultOperatorName = "orc"
	DefaultNamespace    = "orc-system"
	DefaultConsoleURL   = "http://localhost:3000"
	DefaultScanInterval = 24 * time.Hour
	DefaultTriggerPort  = 8082
)

// Config is the root configuration
type Config struct {
	// OperatorName prefixes the token Secret and labels it
	OperatorName string `json:"operatorName,omitempty"`

	// Namespace holds the token Secret
	Namespace string `json:"namespace,omitempty"`

	// ConsoleURL is the collector base URL
	ConsoleURL string `json:"consoleUrl,omitempty"`

	// RegistrationToken is the one-time token used to register the cluster
	RegistrationToken string `json:"registrationToken,omitempty"`

	// ScanInterval is the period between scheduled cycles
	ScanInterval metav1.Duration `json:"scanInterval,omitempty"`

	// DryRun is nil when unset, so an explicit false is kept
	DryRun *bool `json:"dryRun,omitempty"`

	BatchSize          int      `json:"batchSize,omitempty"`
	AgeThresholdDays   *int     `json:"ageThresholdDays,omitempty"`
	IgnoredAnnotations []string `json:"ignoredAnnotations,omitempty"`

	// Scanners restricts the enabled scanner kinds. Empty enables all.
	Scanners []string `json:"scanners,omitempty"`

	Trigger TriggerConfig `json:"trigger,omitempty"`
	GitHub  GitHubConfig  `json:"github,omitempty"`
}

// TriggerConfig configures the on-demand scan server
type TriggerConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	BindAddress string `json:"bindAddress,omitempty"`
	Port        int    `json:"port,omitempty"`
	Secret      string `json:"secret,omitempty"`
}

// GitHubConfig configures the issue notifier. It is disabled when Repository is empty.
type GitHubConfig struct {
	Repository string `json:"repository,omitempty"`
	Issue      int    `json:"issue,omitempty"`
	Token      string `json:"token,omitempty"`
}

// Default returns a configuration holding only defaults
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.OperatorName == "" {
		cfg.OperatorName = DefaultOperatorName
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.ConsoleURL == "" {
		cfg.ConsoleURL = DefaultConsoleURL
	}
	if cfg.ScanInterval.Duration == 0 {
		cfg.ScanInterval.Duration = DefaultScanInterval
	}
	if cfg.DryRun == nil {
		dryRun := true
		cfg.DryRun = &dryRun
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = orcv1alpha1.DefaultBatchSize
	}
	if cfg.AgeThresholdDays == nil {
		days := orcv1alpha1.DefaultAgeThresholdDays
		cfg.AgeThresholdDays = &days
	}
	if cfg.IgnoredAnnotations == nil {
		cfg.IgnoredAnnotations = []string{orcv1alpha1.IgnoreResourceAnnotation}
	}
	if cfg.Trigger.Port == 0 {
		cfg.Trigger.Port = DefaultTriggerPort
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRegistrationToken); ok && v != "" {
		cfg.RegistrationToken = v
	}
	if v, ok := lookup(EnvConsoleURL); ok && v != "" {
		cfg.ConsoleURL = v
	}
	if v, ok := lookup(EnvNamespace); ok && v != "" {
		cfg.Namespace = v
	}
	if v, ok := lookup(EnvGitHubToken); ok && v != "" {
		cfg.GitHub.Token = v
	}
	if v, ok := lookup(EnvTriggerSecret); ok && v != "" {
		cfg.Trigger.Secret = v
	}
	if v, ok := lookup(EnvDryRun); ok && v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDryRun, v, err)
		}
		cfg.DryRun = &dryRun
	}
	return nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.OperatorName == "" {
		return fmt.Errorf("operatorName is required")
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	u, err := url.Parse(c.ConsoleURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("consoleUrl must be an absolute http(s) URL, got %q", c.ConsoleURL)
	}
	if c.ScanInterval.Duration < time.Minute {
		return fmt.Errorf("scanInterval must be at least 1m, got %s", c.ScanInterval.Duration)
	}
	if err := c.Policy().Validate(); err != nil {
		return err
	}
	if c.Trigger.Enabled {
		if c.Trigger.Secret == "" {
			return fmt.Errorf("trigger.secret is required when the trigger server is enabled")
		}
		if c.Trigger.Port < 1 || c.Trigger.Port > 65535 {
			return fmt.Errorf("trigger.port must be between 1 and 65535, got %d", c.Trigger.Port)
		}
	}
	if c.GitHub.Repository != "" && c.GitHub.Issue <= 0 {
		return fmt.Errorf("github.issue is required when github.repository is set")
	}
	return nil
}

// Policy returns the scan policy described by the configuration
func (c *Config) Policy() orcv1alpha1.ScanPolicy {
	policy := orcv1alpha1.DefaultScanPolicy()
	if c.DryRun != nil {
		policy.DryRun = *c.DryRun
	}
	policy.BatchSize = c.BatchSize
	if c.AgeThresholdDays != nil {
		policy.AgeThresholdDays = *c.AgeThresholdDays
	}
	if c.IgnoredAnnotations != nil {
		policy.IgnoredAnnotations = append([]string(nil), c.IgnoredAnnotations...)
	}
	return policy
}

// GitHubEnabled reports whether the issue notifier is configured
func (c *Config) GitHubEnabled() bool {
	return c.GitHub.Repository != ""
}
