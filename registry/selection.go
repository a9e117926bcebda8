package registry

import (
	"sync"

	"github.com/metafates/gache"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/log"
)

// Selection remembers the active adapter between runs.
type Selection interface {
	Load() string
	Save(id string) error
}

type selectionData struct {
	SelectedSource string `json:"selected_source"`
}

// FileSelection keeps the selection in a JSON file.
type FileSelection struct {
	internal *gache.Cache[*selectionData]
}

// NewFileSelection returns a FileSelection at path.
func NewFileSelection(path string) *FileSelection {
	return &FileSelection{
		internal: gache.New[*selectionData](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

func (f *FileSelection) Load() string {
	data, expired, err := f.internal.Get()
	if err != nil {
		log.Warnf("registry: read selection: %s", err)
		return ""
	}
	if expired || data == nil {
		return ""
	}
	return data.SelectedSource
}

func (f *FileSelection) Save(id string) error {
	return f.internal.Set(&selectionData{SelectedSource: id})
}

type memorySelection struct {
	mu sync.Mutex
	id string
}

func (m *memorySelection) Load() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *memorySelection) Save(id string) error {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	return nil
}
