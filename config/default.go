// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vodkit-cli/vodkit/color"
	"github.com/vodkit-cli/vodkit/constant"
	"github.com/vodkit-cli/vodkit/key"
	"github.com/vodkit-cli/vodkit/style"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Vodkit + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	case map[string]string:
		return "map[string]string"
	case []map[string]any:
		return "[]table"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}

		// Structured values cannot be expressed as a single environment variable.
		switch v.(type) {
		case map[string]string, []map[string]any:
		default:
			EnvExposed = append(EnvExposed, k)
		}
	}

	register(key.SourcesDefault, "heimuer", "Adapter to activate when no selection was persisted.\nFalls back to the first registered adapter")
	register(key.SourcesBuiltin, []string{}, "Allow-list of built-in adapters to register.\nEmpty means all of them")
	register(key.SourcesIDs, map[string]string{}, "Explicit adapter IDs keyed by adapter source URL.\nTakes precedence over the ID an adapter declares")
	register(key.SourcesVOD, defaultVOD, "Built-in VOD collection endpoints.\nEach entry has name, base_url and use_xml")
	register(key.SourcesMock, false, "Register the offline mock adapter")
	register(key.RuntimeLoadTimeout, 30, "Seconds allowed for fetching and initializing an external adapter")
	register(key.RuntimeCallTimeout, 30, "Seconds allowed for a single search, detail or play call")
	register(key.RuntimeLibPoll, 10000, "Milliseconds allowed to fetch and run a helper library from its remote URL")
	register(key.BridgeGetTimeout, 3000, "Milliseconds a storage GET waits for the host before it resolves as unknown")
	register(key.ProxyBaseURL, "", "Base URL of a remote fetch proxy.\nEmpty runs the proxy in-process")
	register(key.ProxyAddr, "127.0.0.1:8787", "Listen address for \"vodkit proxy serve\"")
	register(key.ProxyTimeout, 15, "Seconds allowed for a proxied upstream request")
	register(key.ProxyTLSFingerprint, false, "Use a browser TLS fingerprint for upstream requests")
	register(key.ProxyCacheTTL, 3600, "Seconds to keep responses of cacheable adapter requests")
	register(key.SettingsEndpoint, "", "Base URL of the host settings endpoint that mirrors external sources.\nEmpty disables remote sync")
	register(key.SettingsKey, "external_sources", "Settings key that holds the external source list")
	register(key.SearchPageSize, 20, "Items requested per search page")
	register(key.SearchShowQuerySuggestions, true, "Show query suggestions when searching")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
}

var defaultVOD = []map[string]any{
	{"name": "heimuer", "base_url": "https://json02.heimuer.xyz/api.php/provide/vod", "use_xml": false},
	{"name": "wolong", "base_url": "https://collect.wolongzy.cc/api.php/provide/vod/", "use_xml": false},
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
