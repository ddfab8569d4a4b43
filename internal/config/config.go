package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TLS holds the webhook server certificate pair. Admission webhooks must
// serve TLS, so both paths are required when serving in a cluster.
type TLS struct {
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

// Config holds manifestgate runtime configuration.
type Config struct {
	ListenAddr      string        `yaml:"listenAddr"`      // default ":8443"
	MetricsPath     string        `yaml:"metricsPath"`     // default "/metrics"
	PolicyPath      string        `yaml:"policyPath"`      // default "policy.yaml"
	ReloadEvery     time.Duration `yaml:"reloadEvery"`     // default 5m, 0 disables
	HistoryDB       string        `yaml:"historyDB"`       // empty = history disabled
	FailOpen        bool          `yaml:"failOpen"`        // admit on internal errors
	WarnOnly        bool          `yaml:"warnOnly"`        // never deny, annotate only
	TLS             TLS           `yaml:"tls"`
	OTLPEndpoint    string        `yaml:"otlpEndpoint"`    // empty = tracing disabled
	ClusterPolicies bool          `yaml:"clusterPolicies"` // merge GovernancePolicy CRs
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		ListenAddr:  ":8443",
		MetricsPath: "/metrics",
		PolicyPath:  "policy.yaml",
		ReloadEvery: 5 * time.Minute,
	}
}

// Load reads a YAML config file and merges with defaults.
func Load(path string) (*Config, error) {
	c := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return c, nil
}

// Validate checks that the config values are sane.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr must not be empty")
	}
	if c.PolicyPath == "" {
		return fmt.Errorf("policyPath must not be empty")
	}
	if c.ReloadEvery != 0 && c.ReloadEvery < 30*time.Second {
		return fmt.Errorf("reloadEvery must be at least 30s or 0 to disable, got %s", c.ReloadEvery)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls requires both certFile and keyFile")
	}
	return nil
}
