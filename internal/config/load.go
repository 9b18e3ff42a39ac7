package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the shape of an optional YAML override file. Only the
// network endpoints are overridable today.
type fileConfig struct {
	Endpoints Endpoints `yaml:"endpoints"`
}

// LoadEndpoints reads endpoint overrides from a YAML file at path, layering
// them over DefaultEndpoints. A missing path is not an error - it simply
// returns the defaults.
func LoadEndpoints(path string) (Endpoints, error) {
	endpoints := DefaultEndpoints()
	if path == "" {
		return endpoints, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return endpoints, nil
	}
	if err != nil {
		return endpoints, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return endpoints, fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Endpoints.BitcoinMainnetAPI != "" {
		endpoints.BitcoinMainnetAPI = fc.Endpoints.BitcoinMainnetAPI
	}
	if fc.Endpoints.BitcoinTestnetAPI != "" {
		endpoints.BitcoinTestnetAPI = fc.Endpoints.BitcoinTestnetAPI
	}
	if fc.Endpoints.BitsharesMainnetWS != "" {
		endpoints.BitsharesMainnetWS = fc.Endpoints.BitsharesMainnetWS
	}
	if fc.Endpoints.BitsharesTestnetWS != "" {
		endpoints.BitsharesTestnetWS = fc.Endpoints.BitsharesTestnetWS
	}

	return endpoints, nil
}
