// Package adapter defines the uniform query interface every content-source adapter is used through,
// together with the records it returns and the rules an adapter export surface is validated against.
package adapter

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnsupported is returned when an adapter lacks the requested capability.
	ErrUnsupported = errors.New("operation not supported by adapter")

	// ErrNotFound is returned when an adapter has no record for the requested identifier.
	ErrNotFound = errors.New("record not found")

	// ErrResolutionFailed wraps failures to resolve a playable URL.
	ErrResolutionFailed = errors.New("play url resolution failed")

	// ErrInvalidAdapter wraps validation failures of an adapter export surface.
	ErrInvalidAdapter = errors.New("invalid adapter")
)

// Descriptor is the registry-facing metadata of an adapter.
type Descriptor struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	SourceURL       string    `json:"source_url,omitempty"`
	IsExternal      bool      `json:"is_external"`
	SupportsPlayURL bool      `json:"supports_play_url"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// Capabilities records which optional operations an adapter implements.
// It is computed once when the adapter is validated.
type Capabilities struct {
	Detail  bool `json:"detail"`
	PlayURL bool `json:"play_url"`
}

// PlayOptions is passed through to an adapter when resolving a play URL.
type PlayOptions map[string]any

// Adapter is a content source behind the uniform query interface.
type Adapter interface {
	Descriptor() Descriptor
	Capabilities() Capabilities

	// Search returns one page of results. page is 1-based.
	Search(ctx context.Context, keyword string, page, pageSize int) (*Page, error)

	// Detail returns a single record or ErrNotFound.
	Detail(ctx context.Context, id string) (*Detail, error)

	// PlayURL resolves a content identifier into a playable URL.
	PlayURL(ctx context.Context, cid string, opts PlayOptions) (string, error)
}

// Item is a single search result.
type Item struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Cover   string         `json:"cover,omitempty"`
	Type    string         `json:"type,omitempty"`
	Year    string         `json:"year,omitempty"`
	Remarks string         `json:"remarks,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// Episode is a playable unit of a record. Either URL or CID is set.
type Episode struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty" jsonschema:"description=Directly playable URL."`
	CID  string `json:"cid,omitempty" jsonschema:"description=Content identifier to resolve with play_url."`

	// Group names the playlist the episode belongs to when a record has several, e.g. one per mirror.
	Group string `json:"group,omitempty"`
}

// Detail is the full record of a single item.
type Detail struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Cover       string         `json:"cover,omitempty"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type,omitempty"`
	Year        string         `json:"year,omitempty"`
	Area        string         `json:"area,omitempty"`
	Director    string         `json:"director,omitempty"`
	Actors      string         `json:"actors,omitempty"`
	Episodes    []Episode      `json:"episodes,omitempty"`
	Placeholder bool           `json:"placeholder,omitempty" jsonschema:"description=Set when the source cannot return details and only the id is known."`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Placeholder returns the record served for adapters that cannot return details.
func Placeholder(id string) *Detail {
	return &Detail{
		ID:          id,
		Title:       id,
		Description: "This source does not provide details.",
		Placeholder: true,
	}
}
