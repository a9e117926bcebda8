// Package cache keeps adapter responses on disk for a limited time.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/where"
)

// Dir is the cache directory. It is resolved lazily so tests can swap the filesystem first.
var Dir = where.Responses

// GenerateKey derives a deterministic file name from the request parts, e.g. method, url and adapter id.
func GenerateKey(parts ...string) string {
	sanitized := strings.ToLower(strings.Join(parts, "\x00"))
	hash := sha256.Sum256([]byte(sanitized))
	return hex.EncodeToString(hash[:])
}

// Read decodes the entry at key into target if it exists and is younger than ttl.
func Read(key string, ttl time.Duration, target any) bool {
	path := filepath.Join(Dir(), key)

	info, err := filesystem.API().Stat(path)
	if err != nil || time.Since(info.ModTime()) > ttl {
		return false
	}

	b, err := filesystem.API().ReadFile(path)
	if err != nil {
		return false
	}

	return json.Unmarshal(b, target) == nil
}

// Write stores data under key.
func Write(key string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return filesystem.WriteAtomic(filepath.Join(Dir(), key), b, 0644)
}

// CollectGarbage removes entries older than ttl in the background.
func CollectGarbage(ttl time.Duration) {
	go func() {
		_ = Prune(ttl)
	}()
}

// Prune removes entries older than ttl and returns how many were removed.
func Prune(ttl time.Duration) int {
	var removed int
	_ = filesystem.API().Walk(Dir(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if time.Since(info.ModTime()) > ttl {
			if filesystem.API().Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed
}
