package config

import "os"

// parseEnv overlays settings from the process environment:
//
//	SEMCON_URL            container base URL
//	SEMCON_CLIENT_ID      oauth client id
//	SEMCON_CLIENT_SECRET  oauth client secret
//	SEMCON_TOKEN_DB       sqlite token cache path
func parseEnv(cfg *Config) {
	if v, ok := os.LookupEnv("SEMCON_URL"); ok && v != "" {
		cfg.ServerURL = v
	}
	if v, ok := os.LookupEnv("SEMCON_CLIENT_ID"); ok {
		cfg.ClientID = v
	}
	if v, ok := os.LookupEnv("SEMCON_CLIENT_SECRET"); ok {
		cfg.ClientSecret = v
	}
	if v, ok := os.LookupEnv("SEMCON_TOKEN_DB"); ok {
		cfg.TokenDB = v
	}
}
