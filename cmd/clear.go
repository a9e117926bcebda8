package cmd

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/icon"
	"github.com/vodkit-cli/vodkit/style"
	"github.com/vodkit-cli/vodkit/util"
	"github.com/vodkit-cli/vodkit/where"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"cached responses", "responses", mo.Some("r"), where.Responses},
	{"queries history", "queries", mo.Some("q"), where.Queries},
	{"adapter storage", "storage", mo.Some("s"), where.Storage},
	{"active adapter selection", "selection", mo.None[string](), where.Selection},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached and persisted data",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			anyCleared = true
			handleErr(filesystem.API().RemoveAll(target.location()))
			fmt.Printf(
				"%s %s cleared\n",
				style.Fg(color.Green)(icon.Get(icon.Success)),
				util.Capitalize(target.name),
			)
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
