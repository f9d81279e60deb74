package config

import (
	"encoding/json"
	"os"

	"github.com/secretlink/secretlink/internal/flagx"
	"github.com/secretlink/secretlink/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its non-zero fields are copied
// into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	SigningKey       string         `json:"signing_key"`
	MaxTTL           timex.Duration `json:"max_ttl"`
	MaxClicks        int            `json:"max_clicks"`
	CleanupInterval  timex.Duration `json:"cleanup_interval"`
	OpTimeout        timex.Duration `json:"op_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics. Only fields present in the file (i.e.
// non-zero after unmarshalling) override the current values, so defaults
// and flags still apply to everything else.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
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

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SigningKey != "" {
		config.SigningKey = c.SigningKey
	}
	if c.MaxTTL.Duration != 0 {
		config.MaxTTL = c.MaxTTL.Duration
	}
	if c.MaxClicks != 0 {
		config.MaxClicks = c.MaxClicks
	}
	if c.CleanupInterval.Duration != 0 {
		config.CleanupInterval = c.CleanupInterval.Duration
	}
	if c.OpTimeout.Duration != 0 {
		config.OpTimeout = c.OpTimeout.Duration
	}
}
