package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration into target.
// file: optional config file (.env, .yaml, .toml, .json); empty means ".env" in the working directory
// prefix: environment variable prefix (e.g. "LOOKUP_")
// target: pointer to the config struct; fields already set act as defaults
func Load(file, prefix string, target interface{}) error {
	v := viper.New()

	// 1. Config file (optional unless named explicitly)
	explicit := file != ""
	if !explicit {
		file = ".env"
	}
	v.SetConfigFile(file)
	dotenv := filepath.Ext(file) == ".env" || filepath.Base(file) == ".env"
	if dotenv {
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			if explicit {
				return fmt.Errorf("config file %s: %w", file, err)
			}
		default:
			return fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	// .env entries are flat (lookup_server_port); nest them like real env vars
	if dotenv {
		lowerPrefix := strings.ToLower(prefix)
		for _, key := range v.AllKeys() {
			if strings.HasPrefix(key, lowerPrefix) {
				v.Set(EnvKey(prefix, strings.ToUpper(key)), v.Get(key))
			}
		}
	}

	// 2. Environment variables
	// AutomaticEnv doesn't work with Unmarshal when keys aren't known up front,
	// so walk the environment and set matching keys directly.
	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key, value := pair[0], pair[1]
		if !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		// LOOKUP_SERVER_PORT -> server.port
		v.Set(EnvKey(prefixUpper, key), value)
	}

	// 3. Unmarshal into struct
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// EnvKey converts an environment variable name into a dotted config key.
func EnvKey(prefix, name string) string {
	propKey := strings.TrimPrefix(name, strings.ToUpper(prefix))
	propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
	return strings.TrimPrefix(propKey, ".")
}
