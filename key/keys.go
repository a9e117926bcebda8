// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Adapter Sources - these keys manage which adapters are registered and which one is active.
const (
	SourcesDefault = "sources.default"
	SourcesBuiltin = "sources.builtin"
	SourcesIDs     = "sources.ids"
	SourcesVOD     = "sources.vod"
	SourcesMock    = "sources.mock"
)

// Adapter Runtime - these keys tune how external adapter scripts are fetched and executed.
const (
	RuntimeLoadTimeout = "runtime.load_timeout"
	RuntimeCallTimeout = "runtime.call_timeout"
	RuntimeLibPoll     = "runtime.lib_poll"
)

// Storage Bridge - these keys configure the key-value protocol between adapters and the host.
const (
	BridgeGetTimeout = "bridge.get_timeout"
)

// Proxy - these keys configure the fetch proxy that every adapter request goes through.
const (
	ProxyBaseURL        = "proxy.base_url"
	ProxyAddr           = "proxy.addr"
	ProxyTimeout        = "proxy.timeout"
	ProxyTLSFingerprint = "proxy.tls_fingerprint"
	ProxyCacheTTL       = "proxy.cache_ttl"
)

// Host Settings - these keys point at the site settings endpoint that mirrors the external source list.
const (
	SettingsEndpoint = "settings.endpoint"
	SettingsKey      = "settings.key"
)

// Search Interaction - these keys define the CLI parameters for search discovery.
const (
	SearchPageSize             = "search.page_size"
	SearchShowQuerySuggestions = "search.show_query_suggestions"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the command-line behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
