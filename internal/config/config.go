// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8081".
	Addr string `koanf:"addr"`

	// WebhookSecret is the shared secret used to verify provider
	// signatures. Empty is tolerated at load time; the verifier reports
	// it as a configuration error on first use.
	WebhookSecret string `koanf:"webhook_secret"`

	// ReplayWindowMin bounds how old (in minutes) a signed webhook may be.
	ReplayWindowMin int `koanf:"replay_window_min"`

	// DatabaseDSN selects the Postgres store when set; otherwise the
	// in-memory store is used.
	DatabaseDSN string `koanf:"db_dsn"`

	// PhoneMappings seeds phone-to-client mappings for the in-memory
	// store. Ignored when a database is configured, where provisioning
	// writes rows directly.
	PhoneMappings map[string]string `koanf:"phone_mappings"`

	// TokenPrivateKey and TokenPublicKey carry PEM material (inline or a
	// file path) for signing and verifying access tokens. When unset,
	// login and the read API report a configuration error.
	TokenPrivateKey string `koanf:"token_private_key"`
	TokenPublicKey  string `koanf:"token_public_key"`

	// TokenIssuer and TokenAudience are stamped on issued tokens and
	// enforced during verification.
	TokenIssuer   string `koanf:"token_issuer"`
	TokenAudience string `koanf:"token_audience"`

	// TokenTTLMin is the access token lifetime in minutes.
	TokenTTLMin int `koanf:"token_ttl_min"`

	// BcryptCost tunes password hashing work factor.
	BcryptCost int `koanf:"bcrypt_cost"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8081",
		ReplayWindowMin: 30,
		TokenIssuer:     "callsight",
		TokenAudience:   "callsight-dashboard",
		TokenTTLMin:     60,
		BcryptCost:      12,
	}
}
