package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/filesystem"
	"github.com/vodkit-cli/vodkit/icon"
	"github.com/vodkit-cli/vodkit/internal/scraper"
	"github.com/vodkit-cli/vodkit/libs"
	"github.com/vodkit-cli/vodkit/proxy"
	"github.com/vodkit-cli/vodkit/query"
	"github.com/vodkit-cli/vodkit/registry"
	"github.com/vodkit-cli/vodkit/settings"
	"github.com/vodkit-cli/vodkit/style"
	"github.com/vodkit-cli/vodkit/util"
	"github.com/vodkit-cli/vodkit/where"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// sourcesCmd groups the adapter management commands.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage built-in and external adapters",
}

// completionSourceIDs completes registered and persisted adapter ids.
func completionSourceIDs(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	ids := lo.Map(settings.FromConfig().Load(cmd.Context()), func(s settings.ExternalSource, _ int) string {
		return s.ID
	})
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// errUnknownSource suggests the closest known id.
func errUnknownSource(ctx context.Context, a *app, id string) error {
	ids := append(
		lo.Map(a.manager.List(), func(d adapter.Descriptor, _ int) string { return d.ID }),
		lo.Map(a.manager.Known(ctx), func(s settings.ExternalSource, _ int) string { return s.ID })...,
	)

	if closest, ok := query.Closest(id, lo.Uniq(ids)).Get(); ok {
		return fmt.Errorf("%w %s, did you mean %s?", registry.ErrUnknownAdapter, style.Fg(color.Red)(id), style.Fg(color.Yellow)(closest))
	}
	return fmt.Errorf("%w %s", registry.ErrUnknownAdapter, style.Fg(color.Red)(id))
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)

	sourcesListCmd.Flags().BoolP("raw", "r", false, "Suppress headers and print one id per line")
	sourcesListCmd.Flags().BoolP("external", "e", false, "List only external adapters")
	sourcesListCmd.Flags().BoolP("builtin", "b", false, "List only built-in adapters")
	addJSONFlag(sourcesListCmd)

	sourcesListCmd.MarkFlagsMutuallyExclusive("external", "builtin")
	sourcesListCmd.SetOut(os.Stdout)
}

// sourcesListCmd prints registered adapters and persisted external ones not loaded yet.
var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List adapters",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, a *app) error {
			var (
				raw          = lo.Must(cmd.Flags().GetBool("raw"))
				onlyExternal = lo.Must(cmd.Flags().GetBool("external"))
				onlyBuiltin  = lo.Must(cmd.Flags().GetBool("builtin"))
				asJSON       = lo.Must(cmd.Flags().GetBool("json"))
				active       = a.manager.Active().OrEmpty().ID
			)

			descriptors := a.manager.List()
			for _, src := range a.manager.Known(ctx) {
				if lo.ContainsBy(descriptors, func(d adapter.Descriptor) bool { return d.ID == src.ID }) {
					continue
				}
				descriptors = append(descriptors, adapter.Descriptor{ID: src.ID, Name: src.Name, SourceURL: src.URL, IsExternal: true})
			}

			descriptors = lo.Filter(descriptors, func(d adapter.Descriptor, _ int) bool {
				return !(onlyExternal && !d.IsExternal) && !(onlyBuiltin && d.IsExternal)
			})

			if asJSON {
				return printJSON(cmd, descriptors)
			}

			if raw {
				for _, d := range descriptors {
					cmd.Println(d.ID)
				}
				return nil
			}

			idStyle := style.New().Foreground(color.HiBlue).Bold(true).Render
			for _, d := range descriptors {
				kind := lo.Ternary(d.IsExternal, icon.Get(icon.External), icon.Get(icon.Builtin))
				marker := lo.Ternary(d.ID == active, style.Fg(color.Yellow)(icon.Get(icon.Active)), " ")

				if caps, ok := a.manager.Capabilities(d.ID).Get(); ok && caps.PlayURL {
					kind += " play"
				}

				cmd.Printf("%s %s %s %s\n", marker, idStyle(d.ID), d.Name, style.Faint(kind))
				if d.SourceURL != "" {
					cmd.Printf("    %s\n", style.Faint(d.SourceURL))
				}
			}
			return nil
		})
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesAddCmd.Flags().BoolP("use", "u", false, "Make the adapter active after loading it")
}

// sourcesAddCmd loads an external adapter and remembers it.
var sourcesAddCmd = &cobra.Command{
	Use:   "add <url|path>",
	Short: "Load an external adapter from a URL or a local file and remember it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, a *app) error {
			location := args[0]
			if !strings.Contains(location, "://") {
				abs, err := filepath.Abs(location)
				if err != nil {
					return err
				}
				location = abs
			}

			desc, err := a.manager.LoadExternal(ctx, location)
			if err != nil {
				return err
			}

			fmt.Printf("%s added %s %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(desc.ID), style.Faint(desc.Name))

			if lo.Must(cmd.Flags().GetBool("use")) {
				return a.manager.SetActive(ctx, desc.ID)
			}
			return nil
		})
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesRemoveCmd)
	sourcesRemoveCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	sourcesRemoveCmd.ValidArgsFunction = completionSourceIDs
}

// sourcesRemoveCmd forgets external adapters.
var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Remove external adapters",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !lo.Must(cmd.Flags().GetBool("yes")) {
			var confirmed bool
			handleErr(survey.AskOne(&survey.Confirm{
				Message: fmt.Sprintf("Remove %s?", strings.Join(args, ", ")),
				Default: false,
			}, &confirmed))

			if !confirmed {
				return
			}
		}

		withApp(cmd, func(ctx context.Context, a *app) error {
			for _, id := range args {
				err := a.manager.Remove(ctx, id)
				if errors.Is(err, registry.ErrUnknownAdapter) {
					return errUnknownSource(ctx, a, id)
				}
				if err != nil {
					return err
				}

				fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(id))
			}
			return nil
		})
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesUseCmd)
	sourcesUseCmd.ValidArgsFunction = completionSourceIDs
}

// sourcesUseCmd selects the active adapter.
var sourcesUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make an adapter the active one",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, a *app) error {
			err := a.manager.SetActive(ctx, args[0])
			if errors.Is(err, registry.ErrUnknownAdapter) {
				return errUnknownSource(ctx, a, args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s using %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(a.manager.Active().OrEmpty().ID))
			return nil
		})
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesInstallCmd)
	sourcesInstallCmd.Flags().BoolP("use", "u", false, "Make the adapter active after installing it")
}

// sourcesInstallCmd keeps a local copy of a remote adapter and loads it from there.
var sourcesInstallCmd = &cobra.Command{
	Use:   "install <url>",
	Short: "Download an adapter into the sources directory and add it",
	Long: `Download an adapter into the sources directory and add it.
Running it again updates the local copy when the remote one changed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, a *app) error {
			remote := args[0]
			local := filepath.Join(where.Sources(), libs.NameFromURL(remote)+".lua")

			changed, err := scraper.Install(ctx, proxy.FromConfig(), remote, local)
			if err != nil {
				return err
			}

			desc, err := a.manager.LoadExternal(ctx, local)
			if err != nil {
				return err
			}

			status := lo.Ternary(changed, "installed", "up to date")
			fmt.Printf("%s %s %s %s\n", icon.Get(icon.Success), status, style.Fg(color.Yellow)(desc.ID), style.Faint(local))

			if lo.Must(cmd.Flags().GetBool("use")) {
				return a.manager.SetActive(ctx, desc.ID)
			}
			return nil
		})
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesGenCmd)

	sourcesGenCmd.Flags().StringP("name", "n", "", "Display name of the new adapter")
	sourcesGenCmd.Flags().StringP("url", "u", "", "Base URL of the site the adapter talks to")

	lo.Must0(sourcesGenCmd.MarkFlagRequired("name"))
	lo.Must0(sourcesGenCmd.MarkFlagRequired("url"))
}

// sourcesGenCmd scaffolds a Lua adapter.
var sourcesGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Scaffold a new Lua adapter",
	Long:  `Generate a Lua adapter with the exported fields and methods filled in.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SetOut(os.Stdout)

		author := "Anonymous"
		if usr, err := user.Current(); err == nil {
			author = usr.Username
		}

		name := lo.Must(cmd.Flags().GetString("name"))
		s := struct {
			ID, Name, URL, Author      string
			InitFn, SearchFn, DetailFn string
		}{
			ID:       strings.ToLower(util.SanitizeFilename(name)),
			Name:     name,
			URL:      lo.Must(cmd.Flags().GetString("url")),
			Author:   author,
			InitFn:   constant.InitFn,
			SearchFn: constant.SearchFn,
			DetailFn: constant.DetailFn,
		}

		funcMap := template.FuncMap{
			"repeat": strings.Repeat,
			"plus":   func(a, b int) int { return a + b },
			"max":    util.Max[int],
		}

		tmpl, err := template.New("source").Funcs(funcMap).Parse(constant.SourceTemplate)
		handleErr(err)

		target := filepath.Join(where.Sources(), s.ID+".lua")
		f, err := filesystem.API().Create(target)
		handleErr(err)

		defer util.Ignore(f.Close)

		handleErr(tmpl.Execute(f, s))
		cmd.Println(target)
	},
}
