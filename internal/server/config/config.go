// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment variables and
// command-line flags.
package config

import "time"

// ClientCredential is a client_credentials pair accepted by /oauth/token.
// PublicKey, when set, is bound into issued tokens and compared against
// DID document keys by the authorization gate.
type ClientCredential struct {
	ID        string `json:"client_id"`
	Secret    string `json:"client_secret"`
	PublicKey string `json:"public_key"`
}

// Config holds runtime settings for the container server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx); empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - TokenValidityDuration: lifetime of issued access tokens.
//   - AuthEnabled: switches the authorization gate on.
//   - Scopes: optional scope list advertised by /api/active.
//   - ContainerName / ContainerDescription: served by /api/meta/info.
//   - Clients: credential pairs accepted by /oauth/token.
type Config struct {
	EndpointAddr          string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	AuthEnabled           bool
	Scopes                []string
	ContainerName         string
	ContainerDescription  string
	Clients               []ClientCredential
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":3000"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 1 * time.Hour
	c.AuthEnabled = false
	c.ContainerName = "Semantic Container"
	c.ContainerDescription = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment, and finally command-line
// flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
