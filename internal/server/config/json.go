package config

import (
	"encoding/json"
	"os"

	"github.com/ownyourdata/semcon/internal/flagx"
	"github.com/ownyourdata/semcon/internal/timex"
)

// JsonConfig is the file-facing shape of Config. It uses timex.Duration
// for interval fields, which parses both string values such as "1h" and
// integer nanoseconds. After unmarshalling its fields are copied into the
// runtime Config.
type JsonConfig struct {
	EndpointAddr          string             `json:"endpoint_addr"`
	DatabaseDSN           string             `json:"database_dsn"`
	SecretKey             string             `json:"secret_key"`
	TokenValidityDuration timex.Duration     `json:"token_validity_duration"`
	AuthEnabled           bool               `json:"auth"`
	Scopes                []string           `json:"scopes"`
	ContainerName         string             `json:"name"`
	ContainerDescription  string             `json:"description"`
	Clients               []ClientCredential `json:"clients"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, when one is given. A missing or malformed file panics:
// an explicitly requested config that cannot be read is a startup error.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.TokenValidityDuration = c.TokenValidityDuration.Std()
	config.AuthEnabled = c.AuthEnabled
	config.Scopes = c.Scopes
	config.ContainerName = c.ContainerName
	config.ContainerDescription = c.ContainerDescription
	config.Clients = c.Clients
}
