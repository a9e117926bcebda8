package credcache

import (
	"context"

	"github.com/samber/mo"
	"github.com/vodkit-cli/vodkit/bridge"
)

// BridgePersister persists entries through a storage bridge client.
type BridgePersister struct {
	Client *bridge.Client
}

func (p BridgePersister) Load(ctx context.Context, key string) mo.Option[string] {
	if v, presence := p.Client.Get(ctx, key); presence == bridge.Present {
		return mo.Some(v)
	}
	return mo.None[string]()
}

func (p BridgePersister) Save(key, value string) {
	p.Client.Set(key, value)
}
