package adapter

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/constant"
)

// Surface is what an adapter exports, as seen by the validator.
type Surface struct {
	ID         string
	Name       string
	MinVersion string

	// Methods lists the exported fields that are callable.
	Methods []string
}

func (s *Surface) has(method string) bool {
	return lo.Contains(s.Methods, method)
}

// Methods are the export names an adapter operation is bound to after validation.
type Methods struct {
	Search  string
	Detail  string
	PlayURL string
	Init    string
}

// Report is the outcome of validating a Surface.
type Report struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Caps     Capabilities
	Methods  Methods

	// ID and Name are the repaired identity of the adapter.
	ID   string
	Name string
}

// ValidationError lists every reason an adapter was rejected.
type ValidationError struct {
	SourceURL string
	Errors    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("adapter %s: %s", e.SourceURL, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidAdapter
}

// Err returns a *ValidationError when the report is not valid.
func (r *Report) Err(sourceURL string) error {
	if r.Valid {
		return nil
	}
	return &ValidationError{SourceURL: sourceURL, Errors: r.Errors}
}

// Validate checks an adapter surface and repairs its identity.
// A missing search method is an error; a missing detail method only degrades the adapter.
// ids maps source URLs to configured identifiers and may be nil.
func Validate(s *Surface, sourceURL string, ids map[string]string) *Report {
	r := &Report{Valid: true}

	if s == nil {
		r.Valid = false
		r.Errors = append(r.Errors, "adapter did not export a table")
		return r
	}

	switch {
	case s.has(constant.SearchFn):
		r.Methods.Search = constant.SearchFn
	case s.has(constant.LegacySearchFn):
		r.Methods.Search = constant.LegacySearchFn
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s is deprecated, export %s instead", constant.LegacySearchFn, constant.SearchFn))
	default:
		r.Valid = false
		r.Errors = append(r.Errors, fmt.Sprintf("missing required method %s", constant.SearchFn))
	}

	switch {
	case s.has(constant.DetailFn):
		r.Methods.Detail = constant.DetailFn
	case s.has(constant.LegacyDetailFn):
		r.Methods.Detail = constant.LegacyDetailFn
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s is deprecated, export %s instead", constant.LegacyDetailFn, constant.DetailFn))
	default:
		r.Warnings = append(r.Warnings, fmt.Sprintf("missing %s, details will be placeholders", constant.DetailFn))
	}
	r.Caps.Detail = r.Methods.Detail != ""

	if s.has(constant.PlayURLFn) {
		r.Methods.PlayURL = constant.PlayURLFn
		r.Caps.PlayURL = true
	}

	if s.has(constant.InitFn) {
		r.Methods.Init = constant.InitFn
	}

	if strings.TrimSpace(s.ID) == "" {
		r.Warnings = append(r.Warnings, "missing id, one will be derived from the source url")
	}
	r.ID = ResolveID(ids, s.ID, sourceURL)

	r.Name = strings.TrimSpace(s.Name)
	if r.Name == "" {
		r.Warnings = append(r.Warnings, "missing name, one will be derived from the id")
		r.Name = NameFromID(r.ID)
	}

	if s.MinVersion != "" {
		if w := checkMinVersion(s.MinVersion); w != "" {
			r.Warnings = append(r.Warnings, w)
		}
	}

	return r
}

func checkMinVersion(min string) string {
	want, err := semver.NewVersion(min)
	if err != nil {
		return fmt.Sprintf("unparsable minVersion %q", min)
	}

	have := semver.MustParse(constant.Version)
	if have.LessThan(want) {
		return fmt.Sprintf("adapter wants runtime %s or newer, running %s", want, have)
	}

	return ""
}
