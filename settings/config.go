package settings

import (
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/auth"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/network"
	"github.com/vodkit-cli/vodkit/where"
)

// FromConfig returns the local store, mirrored to the host settings endpoint when one is configured.
func FromConfig() *Mirror {
	stores := []Store{NewLocalStore(where.External())}

	if endpoint := viper.GetString(key.SettingsEndpoint); endpoint != "" {
		stores = append(stores, NewRemoteStore(endpoint, viper.GetString(key.SettingsKey), network.Client, auth.GetToken))
	}

	return NewMirror(stores...)
}
