// Package query remembers search keywords and suggests them back.
package query

import (
	"strings"
	"sync"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/where"
	"golang.org/x/exp/slices"
)

type record struct {
	Rank    int    `json:"rank"`
	Keyword string `json:"keyword"`
}

// history maps adapter id to the keywords searched with it.
type history map[string]map[string]*record

var (
	mu     sync.Mutex
	cacher = sync.OnceValue(func() *gache.Cache[history] {
		return gache.New[history](&gache.Options{
			Path:       where.Queries(),
			FileSystem: &filesystem.GacheFs{},
		})
	})
)

func load() history {
	h, expired, err := cacher().Get()
	if expired || err != nil || h == nil {
		return make(history)
	}
	return h
}

// Remember records a keyword searched with adapter id or raises its rank by weight.
func Remember(id, keyword string, weight int) error {
	keyword = sanitize(keyword)
	if keyword == "" {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	h := load()
	if h[id] == nil {
		h[id] = make(map[string]*record)
	}

	if r, ok := h[id][keyword]; ok {
		r.Rank += weight
	} else {
		h[id][keyword] = &record{Rank: weight, Keyword: keyword}
	}

	return cacher().Set(h)
}

// Suggest returns the best suggestion for a partial keyword.
func Suggest(id, keyword string) mo.Option[string] {
	return mo.TupleToOption(lo.First(SuggestMany(id, keyword)))
}

// SuggestMany returns remembered keywords of adapter id fuzzily matching the partial keyword,
// most used first. An empty id matches every adapter.
func SuggestMany(id, keyword string) []string {
	if !viper.GetBool(key.SearchShowQuerySuggestions) {
		return nil
	}

	keyword = sanitize(keyword)

	mu.Lock()
	h := load()
	mu.Unlock()

	ranks := make(map[string]int)
	for adapterID, records := range h {
		if id != "" && adapterID != id {
			continue
		}
		for _, r := range records {
			if fuzzy.Match(keyword, r.Keyword) {
				ranks[r.Keyword] += r.Rank
			}
		}
	}

	keywords := lo.Keys(ranks)
	slices.SortFunc(keywords, func(a, b string) int {
		if ranks[a] != ranks[b] {
			return ranks[b] - ranks[a]
		}
		return strings.Compare(a, b)
	})

	return keywords
}

// Closest returns the candidate nearest to s by edit distance, if any is within half of its length.
func Closest(s string, candidates []string) mo.Option[string] {
	if len(candidates) == 0 {
		return mo.None[string]()
	}

	best := lo.MinBy(candidates, func(a, b string) bool {
		return levenshtein.Distance(s, a) < levenshtein.Distance(s, b)
	})

	if levenshtein.Distance(s, best) > max(len(s)/2, 1) {
		return mo.None[string]()
	}
	return mo.Some(best)
}

func sanitize(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}
