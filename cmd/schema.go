package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/query"
	"github.com/vodkit-cli/vodkit/settings"
	"github.com/vodkit-cli/vodkit/style"
)

var schemaTypes = map[string]any{
	"page":       &adapter.Page{},
	"detail":     &adapter.Detail{},
	"descriptor": []adapter.Descriptor{},
	"external":   []settings.ExternalSource{},
}

func errUnknownSchema(name string) error {
	if closest, ok := query.Closest(name, lo.Keys(schemaTypes)).Get(); ok {
		return fmt.Errorf("unknown type %s, did you mean %s?", style.Fg(color.Red)(name), style.Fg(color.Yellow)(closest))
	}
	return fmt.Errorf("unknown type %s", style.Fg(color.Red)(name))
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringP("type", "t", "page", "Record to describe: page, detail, descriptor or external")
	_ = schemaCmd.RegisterFlagCompletionFunc("type", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return lo.Keys(schemaTypes), cobra.ShellCompDirectiveNoFileComp
	})
}

// schemaCmd prints the JSON schema of the records printed with --json.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print JSON schemas for the --json outputs",
	Run: func(cmd *cobra.Command, args []string) {
		name := lo.Must(cmd.Flags().GetString("type"))
		v, ok := schemaTypes[name]
		if !ok {
			handleErr(errUnknownSchema(name))
		}

		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			return t.Name()
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(reflector.Reflect(v)))
	},
}
