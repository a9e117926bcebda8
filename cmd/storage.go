package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vodkit-cli/vodkit/bridge"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/icon"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/store"
	"github.com/vodkit-cli/vodkit/style"
	"github.com/vodkit-cli/vodkit/util"
	"github.com/vodkit-cli/vodkit/where"
)

// withStorage runs fn with a client that reads and writes the host store directly.
// Keys are shared by every adapter, so the client speaks for the CLI itself.
func withStorage(fn func(c *bridge.Client)) {
	host := bridge.NewHost(store.NewFile(where.Storage()), config.Millis(key.BridgeGetTimeout))
	defer host.Close()

	c := host.Local(constant.Vodkit)
	defer util.Ignore(c.Close)

	fn(c)
}

func init() {
	rootCmd.AddCommand(storageCmd)
}

// storageCmd inspects the values adapters keep in the host store.
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect the key-value storage adapters use",
}

func init() {
	storageCmd.AddCommand(storageGetCmd)
}

var storageGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withStorage(func(c *bridge.Client) {
			value, presence := c.Get(cmd.Context(), args[0])
			if presence != bridge.Present {
				handleErr(fmt.Errorf("%s is not set", style.Fg(color.Yellow)(args[0])))
			}
			fmt.Println(value)
		})
	},
}

func init() {
	storageCmd.AddCommand(storageSetCmd)
}

var storageSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withStorage(func(c *bridge.Client) {
			c.Set(args[0], args[1])
		})
		fmt.Printf("%s set %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Purple)(args[0]))
	},
}

func init() {
	storageCmd.AddCommand(storageRemoveCmd)
}

var storageRemoveCmd = &cobra.Command{
	Use:     "remove <key>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored value",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withStorage(func(c *bridge.Client) {
			c.Remove(args[0])
		})
		fmt.Printf("%s removed %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Purple)(args[0]))
	},
}
