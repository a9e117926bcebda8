// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/where"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	viper.SetConfigName(constant.Vodkit)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	// Synchronize environment variable bindings.
	viper.SetEnvPrefix(constant.Vodkit)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	// Initialize factory default values.
	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// VODSource is one configured built-in collection endpoint.
type VODSource struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
	UseXML  bool   `mapstructure:"use_xml"`
}

// VODSources decodes the configured built-in collection endpoints.
func VODSources() ([]VODSource, error) {
	var sources []VODSource
	if err := viper.UnmarshalKey(key.SourcesVOD, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// AdapterIDs returns the configured adapter source URL to ID mapping.
func AdapterIDs() map[string]string {
	return viper.GetStringMapString(key.SourcesIDs)
}

// Seconds reads an integer key as a duration in seconds.
func Seconds(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Second
}

// Millis reads an integer key as a duration in milliseconds.
func Millis(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Millisecond
}
