package cmd

import (
	"os"
	"runtime"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/style"
	"github.com/vodkit-cli/vodkit/version"
	lua "github.com/yuin/gopher-lua"
)

type buildInfo struct {
	App      string `json:"app"`
	Version  string `json:"version"`
	Revision string `json:"revision"`
	BuiltAt  string `json:"built_at"`
	BuiltBy  string `json:"built_by"`
	Platform string `json:"platform"`
	Go       string `json:"go"`
	Lua      string `json:"lua"`
}

var versionTemplate = template.Must(template.New("version").Funcs(template.FuncMap{
	"faint":  style.Faint,
	"bold":   style.Bold,
	"purple": style.Fg(color.Purple),
}).Parse(`{{ purple "▇▇▇" }} {{ purple .App }}

  {{ faint "Version" }}     {{ bold .Version }}
  {{ faint "Git Commit" }}  {{ bold .Revision }}
  {{ faint "Build Date" }}  {{ bold .BuiltAt }}
  {{ faint "Built By" }}    {{ bold .BuiltBy }}
  {{ faint "Platform" }}    {{ bold .Platform }}
  {{ faint "Runtime" }}     {{ bold .Go }}, {{ bold .Lua }}
`))

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Only print the version")
	addJSONFlag(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		info := buildInfo{
			App:      constant.Vodkit,
			Version:  constant.Version,
			Revision: constant.Revision,
			BuiltAt:  strings.TrimSpace(constant.BuiltAt),
			BuiltBy:  constant.BuiltBy,
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
			Go:       runtime.Version(),
			Lua:      lua.LuaVersion,
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(printJSON(cmd, info))
			return
		}

		defer version.Notify(cmd.Context())
		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), info))
	},
}
