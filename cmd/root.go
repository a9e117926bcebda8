// Package cmd implements the vodkit command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/icon"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/log"
	"github.com/vodkit-cli/vodkit/style"
	"github.com/vodkit-cli/vodkit/util"
	"github.com/vodkit-cli/vodkit/version"
	"github.com/vodkit-cli/vodkit/where"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().StringP("proxy", "P", "", "Base URL of a remote fetch proxy. Empty proxies in-process")
	lo.Must0(viper.BindPFlag(key.ProxyBaseURL, rootCmd.PersistentFlags().Lookup("proxy")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify(context.Background())
	})

	// Leftovers of interrupted atomic writes.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd is the entry point of the vodkit application.
var rootCmd = &cobra.Command{
	Use:   constant.Vodkit,
	Short: "Load content-source adapters at run time and query them through one interface",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Load content-source adapters at run time and query them through one interface"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.SetContext(cmd.Context())
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute routes to the selected command. Interrupts cancel the command context.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
