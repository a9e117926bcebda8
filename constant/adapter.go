package constant

// Adapter export fields. An adapter script assigns a table with these fields to module.exports.
const (
	AdapterID         = "id"
	AdapterName       = "name"
	AdapterBaseURL    = "baseUrl"
	AdapterMinVersion = "minVersion"
)

// Adapter export methods. The legacy names are accepted with a warning.
const (
	SearchFn       = "search"
	LegacySearchFn = "searchMovies"
	DetailFn       = "getDetail"
	LegacyDetailFn = "getMovieDetail"
	PlayURLFn      = "getPlayUrl"
	InitFn         = "init"
)

// ProxyMarker identifies a URL that was already rewritten to go through the proxy.
const ProxyMarker = "/api/proxy?"

// ExternalIDPrefix prefixes identifiers derived from an adapter source URL.
const ExternalIDPrefix = "ext_"
