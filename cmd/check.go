package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/bridge"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/config"
	"github.com/vodkit-cli/vodkit/icon"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/proxy"
	"github.com/vodkit-cli/vodkit/sandbox"
	"github.com/vodkit-cli/vodkit/store"
	"github.com/vodkit-cli/vodkit/style"
	"github.com/vodkit-cli/vodkit/util"
)

func init() {
	sourcesCmd.AddCommand(sourcesCheckCmd)
	sourcesCheckCmd.Flags().StringP("search", "s", "", "Also run a search for this keyword")
}

// sourcesCheckCmd validates an adapter without registering or persisting it.
var sourcesCheckCmd = &cobra.Command{
	Use:   "check <url|path>",
	Short: "Validate an adapter without adding it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		location := args[0]
		if !strings.Contains(location, "://") {
			abs, err := filepath.Abs(location)
			handleErr(err)
			location = abs
		}

		host := bridge.NewHost(store.NewMemory(), config.Millis(key.BridgeGetTimeout))
		defer host.Close()

		loaded, err := sandbox.FromConfig(proxy.FromConfig(), host).LoadAdapter(ctx, location)

		var invalid *adapter.ValidationError
		if errors.As(err, &invalid) {
			for _, reason := range invalid.Errors {
				fmt.Printf("%s %s\n", style.Fg(color.Red)(icon.Get(icon.Fail)), reason)
			}
			handleErr(errors.New("adapter is invalid"))
		}
		handleErr(err)
		if closer, ok := loaded.(io.Closer); ok {
			defer util.Ignore(closer.Close)
		}

		desc := loaded.Descriptor()
		fmt.Printf("%s %s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Yellow)(desc.ID), style.Faint(desc.Name))

		if script, ok := loaded.(*sandbox.Script); ok {
			report := script.Report()
			for _, w := range report.Warnings {
				fmt.Printf("%s %s\n", style.Fg(color.Yellow)(icon.Get(icon.Warn)), w)
			}
			printMethod("search", report.Methods.Search)
			printMethod("detail", report.Methods.Detail)
			printMethod("play url", report.Methods.PlayURL)
			printMethod("init", report.Methods.Init)
		}

		if keyword := lo.Must(cmd.Flags().GetString("search")); keyword != "" {
			page, err := loaded.Search(ctx, keyword, 1, 10)
			handleErr(err)
			printPage(cmd, desc.ID, keyword, page)
		}
	},
}

func printMethod(op, method string) {
	fmt.Printf("  %-9s %s\n", style.Faint(op), lo.Ternary(method != "", style.Bold(method), style.Faint("-")))
}
