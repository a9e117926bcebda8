package scraper

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/vodkit-cli/vodkit/filesystem"
)

// Fetcher downloads the body of a URL.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) (string, error)
}

// Install fetches remoteURL and atomically swaps it into localPath.
// It reports false without writing when the local copy is already identical.
func Install(ctx context.Context, f Fetcher, remoteURL, localPath string) (bool, error) {
	body, err := f.Get(ctx, remoteURL, nil)
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", remoteURL, err)
	}

	if _, err := Compile(remoteURL, body); err != nil {
		return false, err
	}

	local, err := filesystem.API().ReadFile(localPath)
	if err == nil && sha256.Sum256(local) == sha256.Sum256([]byte(body)) {
		return false, nil
	}

	// renameat2 equivalent: a half-written script is never visible to the loader
	if err := filesystem.WriteAtomic(localPath, []byte(body), 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", localPath, err)
	}

	return true, nil
}
