// Package builtin provides the adapters that ship with vodkit: collection site endpoints
// configured under sources.vod and an offline mock catalog.
package builtin

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/internal/scraper"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/util"
)

// All returns the configured built-in adapters. Requests go through fetch.
func All(fetch scraper.Fetcher) []adapter.Adapter {
	sources, err := config.VODSources()
	if err != nil {
		log.Warnf("builtin: invalid %s: %s", key.SourcesVOD, err)
	}

	ttl := lo.Ternary(viper.GetInt(key.ProxyCacheTTL) > 0, config.Seconds(key.ProxyCacheTTL), 0)
	adapters := FromSources(sources, fetch, ttl)

	if viper.GetBool(key.SourcesMock) {
		adapters = append(adapters, Mock{})
	}

	return adapters
}

// FromSources builds one VOD adapter per source. Entries without a base URL are skipped.
func FromSources(sources []config.VODSource, fetch scraper.Fetcher, cacheTTL time.Duration) []adapter.Adapter {
	var adapters []adapter.Adapter
	for _, s := range sources {
		if strings.TrimSpace(s.BaseURL) == "" {
			log.Warnf("builtin: source %q has no base_url", s.Name)
			continue
		}

		adapters = append(adapters, NewVOD(IDFromName(s.Name), s.Name, s.BaseURL, s.UseXML, fetch, cacheTTL))
	}
	return adapters
}

// IDFromName turns a configured source name into an adapter id.
func IDFromName(name string) string {
	return strings.ToLower(util.SanitizeFilename(name))
}
