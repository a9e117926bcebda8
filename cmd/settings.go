package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/auth"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/icon"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/settings"
	"github.com/vodkit-cli/vodkit/style"
	"github.com/vodkit-cli/vodkit/util"
)

func init() {
	rootCmd.AddCommand(settingsCmd)
}

// settingsCmd groups the commands for the host settings endpoint that mirrors external sources.
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Sync external sources with the host settings endpoint",
}

func init() {
	settingsCmd.AddCommand(settingsLoginCmd)
	settingsLoginCmd.Flags().StringP("token", "t", "", "Bearer token. Prompted for when omitted")
}

var settingsLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the bearer token for the settings endpoint in the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		token, _ := cmd.Flags().GetString("token")

		if token == "" {
			handleErr(survey.AskOne(&survey.Password{
				Message: "Token",
			}, &token, survey.WithValidator(survey.Required)))
		}

		handleErr(auth.SetToken(strings.TrimSpace(token)))
		fmt.Printf("%s token saved\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

func init() {
	settingsCmd.AddCommand(settingsLogoutCmd)
}

var settingsLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored bearer token",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := auth.GetToken(); errors.Is(err, auth.ErrNoToken) {
			fmt.Printf("%s no token stored\n", style.Fg(color.Yellow)(icon.Get(icon.Warn)))
			return
		}

		handleErr(auth.DeleteToken())
		fmt.Printf("%s token removed\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

func init() {
	settingsCmd.AddCommand(settingsSyncCmd)
}

// settingsSyncCmd writes the union of the local and remote lists back to both.
var settingsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge the local and remote external source lists",
	Run: func(cmd *cobra.Command, args []string) {
		if viper.GetString(key.SettingsEndpoint) == "" {
			handleErr(fmt.Errorf("%s is not set", key.SettingsEndpoint))
		}

		merged, err := settings.FromConfig().Sync(cmd.Context())
		handleErr(err)

		fmt.Printf(
			"%s synced %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			util.Quantify(len(merged), "external source", "external sources"),
		)
	},
}
