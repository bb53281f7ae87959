// Package config handles configuration for the CLI client, including
// defaults, JSON overlay, environment variables and command-line flags.
package config

// Config holds runtime settings for the semcon CLI.
//
// Fields:
//   - ServerURL: base URL of the container.
//   - ClientID / ClientSecret: credentials for the client_credentials
//     grant; empty means unauthenticated calls.
//   - TokenDB: path of the sqlite file caching the bearer token; empty
//     keeps the token in memory for the life of the process.
type Config struct {
	ServerURL    string
	ClientID     string
	ClientSecret string
	TokenDB      string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:3000"
	c.TokenDB = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present), the environment and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	return cfg
}
