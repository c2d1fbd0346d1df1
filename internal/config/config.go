// Package config handles cogflow demo configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/cogflow/config.yaml, /config/config.yaml,
// /etc/cogflow/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "cogflow", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/cogflow/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all cogflow demo configuration: how the sample graph in
// cmd/cogflow is wired, not anything consumed by the cog runtime itself
// (the runtime package takes no configuration — every parameter is passed
// to its constructors directly, per spec).
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	AuditLog  AuditLogConfig  `yaml:"audit_log"`
}

// MQTTConfig defines the broker connection used by internal/bridge's MQTT
// adapter. Disabled (zero Broker) by default so the demo runs without a
// broker present.
type MQTTConfig struct {
	Broker      string `yaml:"broker"` // e.g. "mqtt://localhost:1883"
	ClientID    string `yaml:"client_id"`
	InputTopic  string `yaml:"input_topic"`  // messages here feed the graph
	OutputTopic string `yaml:"output_topic"` // graph output is republished here
}

// Enabled reports whether an MQTT bridge should be started.
func (c MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// WebSocketConfig defines the broadcast-tap HTTP server.
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // bind address, default ":8787"
}

// AuditLogConfig defines the SQLite error-envelope log.
type AuditLogConfig struct {
	Path string `yaml:"path"` // default "./cogflow-audit.db"
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates the
// result. After Load returns successfully, all fields are usable without
// additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${HOME}) — a convenience for
	// container deployments; values can also be placed directly in the file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults. Called
// automatically by Load. After this, callers can read any field without
// checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.WebSocket.Address == "" {
		c.WebSocket.Address = ":8787"
	}
	if c.AuditLog.Path == "" {
		c.AuditLog.Path = "./cogflow-audit.db"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "cogflow"
	}
	if c.MQTT.InputTopic == "" {
		c.MQTT.InputTopic = "cogflow/in"
	}
	if c.MQTT.OutputTopic == "" {
		c.MQTT.OutputTopic = "cogflow/out"
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.MQTT.Enabled() && c.MQTT.InputTopic == c.MQTT.OutputTopic {
		return fmt.Errorf("mqtt: input_topic and output_topic must differ (both %q)", c.MQTT.InputTopic)
	}
	return nil
}

// Default returns a default configuration suitable for running the demo
// graph locally with no broker and no config file. All defaults are
// already applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
