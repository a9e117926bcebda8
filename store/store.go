// Package store provides the host-side key-value storage that adapters reach through the storage bridge.
package store

import (
	"sync"

	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/vodkit-cli/vodkit/filesystem"
)

// KV is a flat string key-value store.
type KV interface {
	Get(key string) mo.Option[string]
	Set(key, value string) error
	Delete(key string) error
}

type fileData struct {
	Values map[string]string `json:"values"`
}

// File is a KV persisted as a single JSON file.
type File struct {
	internal *gache.Cache[*fileData]
	mu       sync.RWMutex
}

// NewFile returns a KV persisted at path.
func NewFile(path string) *File {
	return &File{
		internal: gache.New[*fileData](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

func (f *File) load() (*fileData, error) {
	data, expired, err := f.internal.Get()
	if err != nil {
		return nil, err
	}

	if expired || data == nil || data.Values == nil {
		data = &fileData{Values: make(map[string]string)}
	}
	return data, nil
}

// Get returns the value stored under key.
func (f *File) Get(key string) mo.Option[string] {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.load()
	if err != nil {
		return mo.None[string]()
	}

	if v, ok := data.Values[key]; ok {
		return mo.Some(v)
	}
	return mo.None[string]()
}

// Set stores value under key.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}

	data.Values[key] = value
	return f.internal.Set(data)
}

// Delete removes key. Deleting a missing key is not an error.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}

	if _, ok := data.Values[key]; !ok {
		return nil
	}

	delete(data.Values, key)
	return f.internal.Set(data)
}

// Memory is a KV that lives only as long as the process.
type Memory struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewMemory returns an empty in-memory KV.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) mo.Option[string] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if v, ok := m.values[key]; ok {
		return mo.Some(v)
	}
	return mo.None[string]()
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
