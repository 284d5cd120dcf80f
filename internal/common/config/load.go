package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// LoadFile reads a single yaml or json document into config. Callers supply
// decode hooks to map plain strings onto domain types. Viper lowercases every
// key, so this loader suits documents read into structs only; documents
// carrying case-sensitive map keys go through LoadYamlFile instead.
func LoadFile(config interface{}, path string, opts ...viper.DecoderConfigOption) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.WithMessagef(err, "error reading config file %s", path)
	}
	if err := v.Unmarshal(config, opts...); err != nil {
		return errors.WithMessagef(err, "error unmarshalling config file %s", path)
	}
	return nil
}

// LoadYamlFile reads a yaml document into config, preserving key case.
func LoadYamlFile(config interface{}, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.WithMessagef(err, "error reading config file %s", path)
	}
	if err := yaml.Unmarshal(content, config); err != nil {
		return errors.WithMessagef(err, "error unmarshalling config file %s", path)
	}
	return nil
}
