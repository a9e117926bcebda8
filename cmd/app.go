package cmd

import (
	"context"

	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/bridge"
	"github.com/vodkit-cli/vodkit/builtin"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/proxy"
	"github.com/vodkit-cli/vodkit/registry"
	"github.com/vodkit-cli/vodkit/sandbox"
	"github.com/vodkit-cli/vodkit/settings"
	"github.com/vodkit-cli/vodkit/store"
	"github.com/vodkit-cli/vodkit/where"
)

// app holds the runtime a command works with.
type app struct {
	manager *registry.Manager
	host    *bridge.Host
}

// newApp wires the registry to the configured proxy, storage and source list and initializes it.
func newApp(ctx context.Context) (*app, error) {
	client := proxy.FromConfig()
	host := bridge.NewHost(store.NewFile(where.Storage()), config.Millis(key.BridgeGetTimeout))
	loader := sandbox.FromConfig(client, host)

	manager := registry.New(
		registry.WithLoader(registry.LoaderFunc(loader.LoadAdapter)),
		registry.WithSources(settings.FromConfig()),
		registry.WithSelection(registry.NewFileSelection(where.Selection())),
		registry.WithBuiltinAllowList(viper.GetStringSlice(key.SourcesBuiltin)),
		registry.WithDefault(viper.GetString(key.SourcesDefault)),
	)
	manager.Subscribe(func(e registry.Event) {
		log.With("adapter", e.ID).Debugf("registry: %s", e.Kind)
	})

	if err := manager.Initialize(ctx, builtin.All(client)...); err != nil {
		manager.Shutdown()
		host.Close()
		return nil, err
	}

	return &app{manager: manager, host: host}, nil
}

func (a *app) Close() {
	a.manager.Shutdown()
	a.host.Close()
}

// withApp runs fn against an initialized app and exits on error.
func withApp(cmd interface{ Context() context.Context }, fn func(ctx context.Context, a *app) error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	handleErr(err)

	err = fn(ctx, a)
	a.Close()
	handleErr(err)
}
