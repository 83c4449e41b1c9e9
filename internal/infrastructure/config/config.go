package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Signalgrid Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	NATS    NATSConfig    `yaml:"nats"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
}

// NATSConfig contains NATS server connection settings.
type NATSConfig struct {
	// Servers is the ordered list of server URLs (nats://host:port).
	// At least one server is required.
	Servers []string `yaml:"servers"`

	// Name is the client connection name reported to the server.
	Name string `yaml:"name"`

	// NoRandomize disables shuffling of the server list and of DNS-resolved
	// addresses. Affects load distribution across the cluster, not correctness.
	NoRandomize bool `yaml:"no_randomize"`

	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Auth is an ordered list of credentials to present at connect time.
	// May be empty for servers that allow anonymous connections.
	Auth []AuthConfig `yaml:"auth"`

	TLS TLSConfig `yaml:"tls"`

	// DrainTimeout bounds the graceful drain on shutdown (seconds).
	// 0 uses the transport default.
	DrainTimeout int `yaml:"drain_timeout"`

	// Debug enables verbose connection diagnostics.
	Debug bool `yaml:"debug"`

	// NoAsyncTraces suppresses error detail on asynchronous status log entries.
	NoAsyncTraces bool `yaml:"no_async_traces"`
}

// ReconnectConfig contains NATS reconnection settings.
type ReconnectConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxAttempts limits reconnection attempts. -1 means unlimited.
	MaxAttempts int `yaml:"max_attempts"`

	// Wait is the delay between reconnection attempts (seconds).
	// 0 uses the transport default.
	Wait int `yaml:"wait"`
}

// Supported authentication types.
const (
	AuthToken     = "token"
	AuthUserPass  = "user_pass"
	AuthNKey      = "nkey"
	AuthCredsFile = "creds_file"
)

// AuthConfig describes a single credential. Exactly one variant is active,
// selected by Type.
type AuthConfig struct {
	// Type is one of: token, user_pass, nkey, creds_file.
	Type string `yaml:"type"`

	// Token for type "token".
	Token string `yaml:"token,omitempty"`

	// Username and Password for type "user_pass". Password may be empty.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// NkeySeed is the NKey seed string for type "nkey".
	NkeySeed string `yaml:"nkey_seed,omitempty"`

	// CredsFile is the path to a decorated .creds file for type "creds_file".
	CredsFile string `yaml:"creds_file,omitempty"`
}

// TLSConfig contains TLS settings for the NATS connection.
//
// For each of cert, key, and ca the material can be supplied inline as PEM
// text or as a file path. When both are set, the file path wins.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// HandshakeFirst performs the TLS handshake before the server INFO
	// exchange. Requires a server configured for handshake-first TLS.
	HandshakeFirst bool `yaml:"handshake_first"`

	Cert     string `yaml:"cert,omitempty"`
	CertFile string `yaml:"cert_file,omitempty"`
	Key      string `yaml:"key,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	CA       string `yaml:"ca,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SIGNALGRID_SECTION_KEY
// For example: SIGNALGRID_NATS_SERVERS, SIGNALGRID_LOG_LEVEL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			Servers: []string{"nats://localhost:4222"},
			Name:    "signalgrid-core",
			Reconnect: ReconnectConfig{
				Enabled:     true,
				MaxAttempts: -1,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SIGNALGRID_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// NATS
	if v := os.Getenv("SIGNALGRID_NATS_SERVERS"); v != "" {
		cfg.NATS.Servers = splitAndTrim(v)
	}
	if v := os.Getenv("SIGNALGRID_NATS_NAME"); v != "" {
		cfg.NATS.Name = v
	}

	// API
	if v := os.Getenv("SIGNALGRID_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Logging
	if v := os.Getenv("SIGNALGRID_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// splitAndTrim splits a comma-separated list, trims whitespace, and drops
// empty entries.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// NATS validation
	if len(c.NATS.Servers) == 0 {
		errs = append(errs, "nats.servers requires at least one server URL")
	}
	for i, srv := range c.NATS.Servers {
		if strings.TrimSpace(srv) == "" {
			errs = append(errs, fmt.Sprintf("nats.servers[%d] is empty", i))
		}
	}

	for i, auth := range c.NATS.Auth {
		if err := auth.validate(); err != nil {
			errs = append(errs, fmt.Sprintf("nats.auth[%d]: %v", i, err))
		}
	}

	if err := c.NATS.TLS.validate(); err != nil {
		errs = append(errs, fmt.Sprintf("nats.tls: %v", err))
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validate checks that the field required by the auth type is set.
func (a AuthConfig) validate() error {
	switch strings.ToLower(a.Type) {
	case AuthToken:
		if a.Token == "" {
			return fmt.Errorf("token is required for type %q", AuthToken)
		}
	case AuthUserPass:
		if a.Username == "" {
			return fmt.Errorf("username is required for type %q", AuthUserPass)
		}
	case AuthNKey:
		if a.NkeySeed == "" {
			return fmt.Errorf("nkey_seed is required for type %q", AuthNKey)
		}
	case AuthCredsFile:
		if a.CredsFile == "" {
			return fmt.Errorf("creds_file is required for type %q", AuthCredsFile)
		}
	case "":
		return fmt.Errorf("type is required (one of: %s, %s, %s, %s)",
			AuthToken, AuthUserPass, AuthNKey, AuthCredsFile)
	default:
		return fmt.Errorf("unknown type %q", a.Type)
	}
	return nil
}

// validate checks TLS slot pairing. A client certificate needs both halves;
// a CA on its own is fine.
func (t TLSConfig) validate() error {
	if !t.Enabled {
		return nil
	}

	hasCert := t.Cert != "" || t.CertFile != ""
	hasKey := t.Key != "" || t.KeyFile != ""
	if hasCert != hasKey {
		return fmt.Errorf("cert and key must be provided together")
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDrainTimeout returns the NATS drain timeout as a Duration.
// Zero means the transport default applies.
func (n NATSConfig) GetDrainTimeout() time.Duration {
	return time.Duration(n.DrainTimeout) * time.Second
}

// GetReconnectWait returns the reconnect delay as a Duration.
// Zero means the transport default applies.
func (r ReconnectConfig) GetReconnectWait() time.Duration {
	return time.Duration(r.Wait) * time.Second
}
