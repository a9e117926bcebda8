package settings

import (
	"context"
	"sync"

	"github.com/metafates/gache"
	"github.com/vodkit-cli/vodkit/filesystem"
)

// LocalStore keeps the list in a JSON file.
type LocalStore struct {
	mu       sync.Mutex
	internal *gache.Cache[[]ExternalSource]
}

// NewLocalStore returns a LocalStore at path.
func NewLocalStore(path string) *LocalStore {
	return &LocalStore{
		internal: gache.New[[]ExternalSource](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

func (l *LocalStore) Name() string {
	return "local"
}

func (l *LocalStore) Load(context.Context) ([]ExternalSource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list, expired, err := l.internal.Get()
	if err != nil {
		return nil, err
	}
	if expired || list == nil {
		return []ExternalSource{}, nil
	}
	return list, nil
}

func (l *LocalStore) Save(_ context.Context, sources []ExternalSource) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.internal.Set(sources)
}
