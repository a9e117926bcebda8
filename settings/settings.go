// Package settings persists the list of external adapters the user loaded.
//
// The list lives in a local file and, when configured, in the host settings endpoint.
// Writers never overwrite a list: they read it, merge their change in and write the result,
// so two clients adding different adapters both keep theirs.
package settings

import (
	"context"

	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/log"
)

// ExternalSource is a persisted external adapter.
type ExternalSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s ExternalSource) identity() string {
	if s.ID != "" {
		return s.ID
	}
	return s.URL
}

// Merge unions lists keyed by id, or by url when the id is empty.
// Order is that of first appearance. A later entry updates the non-empty fields of an earlier one.
func Merge(lists ...[]ExternalSource) []ExternalSource {
	merged := make([]ExternalSource, 0)
	index := make(map[string]int)

	for _, list := range lists {
		for _, s := range list {
			k := s.identity()
			if k == "" {
				continue
			}

			i, ok := index[k]
			if !ok {
				index[k] = len(merged)
				merged = append(merged, s)
				continue
			}

			if s.Name != "" {
				merged[i].Name = s.Name
			}
			if s.URL != "" {
				merged[i].URL = s.URL
			}
		}
	}

	return merged
}

// Without returns list minus the entry with id.
func Without(list []ExternalSource, id string) []ExternalSource {
	return lo.Reject(list, func(s ExternalSource, _ int) bool {
		return s.ID == id
	})
}

// Store is one place the list is kept.
type Store interface {
	Name() string
	Load(ctx context.Context) ([]ExternalSource, error)
	Save(ctx context.Context, sources []ExternalSource) error
}

// Mirror keeps the list in several stores.
type Mirror struct {
	stores []Store
}

// NewMirror returns a Mirror over stores. The first store is authoritative for ordering.
func NewMirror(stores ...Store) *Mirror {
	return &Mirror{stores: stores}
}

// Load merges the lists of every store. A failing store is logged and skipped.
func (m *Mirror) Load(ctx context.Context) []ExternalSource {
	lists := make([][]ExternalSource, 0, len(m.stores))
	for _, s := range m.stores {
		list, err := s.Load(ctx)
		if err != nil {
			log.Warnf("settings: load %s: %s", s.Name(), err)
			continue
		}
		lists = append(lists, list)
	}
	return Merge(lists...)
}

// Add merges src into every store.
func (m *Mirror) Add(ctx context.Context, src ExternalSource) error {
	return m.update(ctx, func(list []ExternalSource) []ExternalSource {
		return Merge(list, []ExternalSource{src})
	})
}

// Remove deletes the entry with id from every store.
func (m *Mirror) Remove(ctx context.Context, id string) error {
	return m.update(ctx, func(list []ExternalSource) []ExternalSource {
		return Without(list, id)
	})
}

// Sync writes the union of every store back to each of them and returns it.
func (m *Mirror) Sync(ctx context.Context) ([]ExternalSource, error) {
	merged := m.Load(ctx)
	err := m.update(ctx, func(list []ExternalSource) []ExternalSource {
		return Merge(list, merged)
	})
	return merged, err
}

// update applies change to each store's current list. It returns the first error and still visits every store.
func (m *Mirror) update(ctx context.Context, change func([]ExternalSource) []ExternalSource) error {
	var first error
	for _, s := range m.stores {
		list, err := s.Load(ctx)
		if err == nil {
			err = s.Save(ctx, change(list))
		}
		if err != nil {
			log.Warnf("settings: update %s: %s", s.Name(), err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
