// Package version tracks the running vodkit version and discovers newer releases.
package version

import (
	"github.com/Masterminds/semver/v3"
)

// Compare performs a semantic comparison between two version strings.
// Returns 1 if a > b, -1 if a < b, and 0 if equal.
func Compare(a, b string) (int, error) {
	av, err := semver.NewVersion(a)
	if err != nil {
		return 0, err
	}

	bv, err := semver.NewVersion(b)
	if err != nil {
		return 0, err
	}

	return av.Compare(bv), nil
}
