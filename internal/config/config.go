package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".sysward"
	DefaultConfigFile = "config.yaml"
	DefaultPolicyFile = "policy.yaml"
	DefaultAuditFile  = "audit.jsonl"
)

// Config is everything the pipeline consumes: the policy rule set location,
// the audit sink, execution bounds, and the LLM endpoint. Loaded once at
// startup, read-only afterwards.
type Config struct {
	ConfigDir  string `yaml:"-"`
	PolicyPath string `yaml:"policy_path"`
	AuditPath  string `yaml:"audit_path"`

	ExecTimeout    time.Duration `yaml:"-"`
	TimeoutSecs    int           `yaml:"timeout_seconds"`
	MaxOutputBytes int           `yaml:"max_output_bytes"`
	MaxPayload     int           `yaml:"max_payload_bytes"`
	DryRun         bool          `yaml:"dry_run"`
	RequireConfirm bool          `yaml:"require_confirmation"`

	APIKey     string `yaml:"api_key"`
	APIModel   string `yaml:"api_model"`
	APIBaseURL string `yaml:"api_base_url"`
}

// Load resolves the configuration: defaults, then the YAML config file if
// present, then SYSWARD_* environment overrides, then explicit flag values
// passed by the caller.
func Load(policyPath, auditPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir:      configDir,
		PolicyPath:     filepath.Join(configDir, DefaultPolicyFile),
		AuditPath:      filepath.Join(configDir, DefaultAuditFile),
		ExecTimeout:    10 * time.Second,
		MaxOutputBytes: 64 * 1024,
		MaxPayload:     16 * 1024,
	}

	if err := cfg.loadFile(filepath.Join(configDir, DefaultConfigFile)); err != nil {
		return nil, err
	}
	if cfg.TimeoutSecs > 0 {
		cfg.ExecTimeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	cfg.loadEnv()

	if policyPath != "" {
		cfg.PolicyPath = policyPath
	}
	if auditPath != "" {
		cfg.AuditPath = auditPath
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("SYSWARD_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("SYSWARD_MODEL"); v != "" {
		c.APIModel = v
	}
	if v := os.Getenv("SYSWARD_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("SYSWARD_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.ExecTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("SYSWARD_DRY_RUN"); v == "true" || v == "1" {
		c.DryRun = true
	}
	if v := os.Getenv("SYSWARD_CONFIRM"); v == "true" || v == "1" {
		c.RequireConfirm = true
	}
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
