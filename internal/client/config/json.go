package config

import (
	"encoding/json"
	"os"

	"github.com/ownyourdata/semcon/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. After
// parsing, values are copied into the runtime Config.
type JsonConfig struct {
	ServerURL    string `json:"server_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenDB      string `json:"token_db"`
}

// parseJson overlays cfg with values loaded from the JSON file named by
// the -c/-config flags, when one is given. Panics on read or unmarshal
// errors: an explicitly requested config that cannot be read is a
// startup error.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	cfg.ClientID = jc.ClientID
	cfg.ClientSecret = jc.ClientSecret
	cfg.TokenDB = jc.TokenDB
}
