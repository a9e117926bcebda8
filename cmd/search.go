package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/icon"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/query"
	"github.com/vodkit-cli/vodkit/style"
	"github.com/vodkit-cli/vodkit/util"
)

// addSourceFlag adds --source, selecting an adapter other than the active one.
func addSourceFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("source", "s", "", "Adapter id to query instead of the active one")
	lo.Must0(cmd.RegisterFlagCompletionFunc("source", completionSourceIDs))
}

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// wrapWidth is the terminal width, capped for readability.
func wrapWidth() int {
	width, _, err := util.TerminalSize()
	if err != nil || width <= 0 {
		return 80
	}
	return min(width, 100)
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntP("page", "p", 1, "1-based page number")
	searchCmd.Flags().IntP("size", "n", 0, "Items per page")
	lo.Must0(viper.BindPFlag(key.SearchPageSize, searchCmd.Flags().Lookup("size")))

	addSourceFlag(searchCmd)
	addJSONFlag(searchCmd)
	searchCmd.SetOut(os.Stdout)
}

// searchCmd queries an adapter.
var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search the active adapter",
	Args:  cobra.MinimumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return query.SuggestMany("", toComplete), cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, a *app) error {
			var (
				keyword = strings.Join(args, " ")
				page    = lo.Must(cmd.Flags().GetInt("page"))
				size    = viper.GetInt(key.SearchPageSize)
				source  = lo.Must(cmd.Flags().GetString("source"))
			)

			p, err := a.manager.Search(ctx, keyword, page, size, source)
			if err != nil {
				return err
			}

			id := lo.Ternary(source != "", source, a.manager.Active().OrEmpty().ID)
			if err := query.Remember(id, keyword, 1); err != nil {
				log.Warnf("remember query: %s", err)
			}

			if lo.Must(cmd.Flags().GetBool("json")) {
				return printJSON(cmd, p)
			}

			printPage(cmd, id, keyword, p)
			return nil
		})
	},
}

func printPage(cmd *cobra.Command, id, keyword string, p *adapter.Page) {
	if len(p.Items) == 0 {
		cmd.Printf("%s nothing found for %s\n", icon.Get(icon.Search), style.Fg(color.Yellow)(keyword))
		if s, ok := query.Suggest(id, keyword).Get(); ok && s != strings.ToLower(keyword) {
			cmd.Printf("  %s %s\n", style.Faint("did you mean"), style.Fg(color.Yellow)(s))
		}
		return
	}

	idStyle := style.New().Foreground(color.HiBlue).Bold(true).Render
	for _, item := range p.Items {
		meta := lo.Compact([]string{item.Type, item.Year, item.Remarks})
		cmd.Printf("%s %s %s\n", idStyle(item.ID), style.Bold(item.Title), style.Faint(strings.Join(meta, " · ")))
	}

	cmd.Println()
	cmd.Println(style.Faint(fmt.Sprintf(
		"page %d of %d, %s",
		p.Page, p.PageCount, util.Quantify(p.Total, "result", "results"),
	)))
}

func init() {
	rootCmd.AddCommand(detailCmd)
	addSourceFlag(detailCmd)
	addJSONFlag(detailCmd)
	detailCmd.SetOut(os.Stdout)
}

// detailCmd prints a single record.
var detailCmd = &cobra.Command{
	Use:   "detail <id>",
	Short: "Show a record and its episodes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, a *app) error {
			d, err := a.manager.Detail(ctx, args[0], lo.Must(cmd.Flags().GetString("source")))
			if err != nil {
				return err
			}

			if lo.Must(cmd.Flags().GetBool("json")) {
				return printJSON(cmd, d)
			}

			printDetail(cmd, d)
			return nil
		})
	},
}

func printDetail(cmd *cobra.Command, d *adapter.Detail) {
	width := wrapWidth()
	label := style.Fg(color.Purple)

	cmd.Println(style.Bold(d.Title))
	for _, field := range []lo.Tuple2[string, string]{
		{A: "Type", B: d.Type},
		{A: "Year", B: d.Year},
		{A: "Area", B: d.Area},
		{A: "Director", B: d.Director},
		{A: "Actors", B: d.Actors},
	} {
		if field.B != "" {
			cmd.Printf("%s %s\n", label(field.A+":"), field.B)
		}
	}

	if d.Description != "" {
		cmd.Println()
		cmd.Println(indent.String(wordwrap.String(d.Description, width-2), 2))
	}

	if len(d.Episodes) == 0 {
		return
	}

	cmd.Println()
	groups := lo.GroupBy(d.Episodes, func(e adapter.Episode) string { return e.Group })
	order := lo.Uniq(lo.Map(d.Episodes, func(e adapter.Episode, _ int) string { return e.Group }))
	for _, group := range order {
		if group != "" {
			cmd.Println(label(group))
		}
		for _, e := range groups[group] {
			cmd.Printf("  %s %s\n", e.Name, style.Faint(lo.Ternary(e.URL != "", e.URL, "cid:"+e.CID)))
		}
	}
}

func init() {
	rootCmd.AddCommand(playCmd)
	addSourceFlag(playCmd)
	playCmd.Flags().StringToStringP("option", "o", map[string]string{}, "Options passed to the adapter, e.g. quality=1080")
	playCmd.SetOut(os.Stdout)
}

// playCmd resolves a content id into a playable URL.
var playCmd = &cobra.Command{
	Use:   "play <cid>",
	Short: "Resolve a playable URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, a *app) error {
			opts := adapter.PlayOptions(lo.MapValues(lo.Must(cmd.Flags().GetStringToString("option")), func(v, _ string) any {
				return v
			}))

			u, err := a.manager.PlayURL(ctx, args[0], opts, lo.Must(cmd.Flags().GetString("source")))
			if err != nil {
				return err
			}

			cmd.Println(u)
			return nil
		})
	},
}
