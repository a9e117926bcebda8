package main

import (
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/cmd"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/internal/cache"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	if viper.GetInt(key.ProxyCacheTTL) > 0 {
		cache.CollectGarbage(config.Seconds(key.ProxyCacheTTL))
	}

	cmd.Execute()
}
