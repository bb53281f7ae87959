package config

import (
	"os"
	"strings"
)

// parseEnv overlays the deploy-facing switches taken from the process
// environment:
//
//	AUTH                   "true" enables the authorization gate
//	AUTH_SCOPE             space-separated scope list
//	CONTAINER_NAME         container display name
//	CONTAINER_DESCRIPTION  container description
//	DATABASE_URL           PostgreSQL DSN
//	SECRET_KEY             JWT HMAC secret
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("AUTH"); ok {
		config.AuthEnabled = strings.EqualFold(v, "true")
	}
	if v, ok := os.LookupEnv("AUTH_SCOPE"); ok && v != "" {
		config.Scopes = strings.Fields(v)
	}
	if v, ok := os.LookupEnv("CONTAINER_NAME"); ok {
		config.ContainerName = v
	}
	if v, ok := os.LookupEnv("CONTAINER_DESCRIPTION"); ok {
		config.ContainerDescription = v
	}
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("SECRET_KEY"); ok {
		config.SecretKey = v
	}
}
