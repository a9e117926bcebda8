// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/filesystem"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "VODKIT_CONFIG_PATH"

// ensureDir guarantees the existence of a directory at the specified path, creating it if necessary.
func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// The path can be explicitly overridden via the VODKIT_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Vodkit))
}

// Cache resolves the absolute path to the application's persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.Vodkit))
}

// Logs resolves the absolute path to the directory used for application diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Sources resolves the directory holding locally installed adapter scripts.
func Sources() string {
	return ensureDir(filepath.Join(Config(), "sources"))
}

// Responses resolves the directory holding cached proxied responses.
func Responses() string {
	return ensureDir(filepath.Join(Cache(), "responses"))
}

// External resolves the file that mirrors the list of loaded external adapters.
func External() string {
	return filepath.Join(Config(), "external.json")
}

// Selection resolves the file that remembers the active adapter.
func Selection() string {
	return filepath.Join(Config(), "selection.json")
}

// Storage resolves the key-value file adapters write through the storage bridge.
func Storage() string {
	return filepath.Join(Config(), "storage.json")
}

// Queries resolves the absolute path to the localized search query suggestion registry.
func Queries() string {
	return filepath.Join(Cache(), "queries.json")
}

// Temp resolves a unique, volatile filesystem path for transient application artifacts.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.Vodkit))
}
