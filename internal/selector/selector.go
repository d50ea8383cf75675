// Package selector implements the declarative extraction framework (§4.5):
// primitive selectors over HTML/JSON/string/request data, a common
// post-processing pipeline, and composition via an optional inner selector.
package selector

import (
	"fmt"
	"strings"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

// Context is the (content, response) pair every selector evaluates against.
// A selector without an inner selector runs over Content; one built with
// WithInner runs over each string its inner selector produced, with Content
// left unchanged. Embedded schemas bind with the matched snippet as Content.
type Context struct {
	Content  string
	Response *types.Response
}

// Converter maps a single selected string to an arbitrary value. A nil
// pointer argument means "no value was selected" (used in single-mode with
// zero matches), preserving the "default value" semantics described in §4.5.
type Converter func(value *string) any

// produceFunc implements one primitive's extraction logic: given one input
// string (HTML fragment, JSON text, raw string, or ignored for
// request/response-derived primitives) and the full Context, return zero or
// more matched strings.
type produceFunc func(input string, ctx Context) ([]string, error)

// Selector is a compiled, reusable extraction node. Build one via the
// primitive constructors (CSS, XPath, Regex, JSON, AttrSelector,
// QuerySelector, HeaderSelector, URLSelector, IDSelector) and the functional
// options below.
type Selector struct {
	name      string
	produce   produceFunc
	inner     *Selector
	trim      bool
	filterEmp bool
	formatStr string
	converter Converter
	multi     bool
}

// Option configures a Selector at construction time.
type Option func(*Selector)

// Trim strips leading/trailing whitespace from each selected string.
func Trim() Option { return func(s *Selector) { s.trim = true } }

// FilterEmpty drops empty strings from the selected list.
func FilterEmpty() Option { return func(s *Selector) { s.filterEmp = true } }

// FormatStr substitutes each selected value into a "%s"-style template.
func FormatStr(tmpl string) Option { return func(s *Selector) { s.formatStr = tmpl } }

// WithConverter maps each selected string through c.
func WithConverter(c Converter) Option { return func(s *Selector) { s.converter = c } }

// Multi makes Select return a []any instead of collapsing to the first
// match (or nil).
func Multi() Option { return func(s *Selector) { s.multi = true } }

// WithInner chains this selector's input to the output of inner: inner runs
// first, and this selector's produceFunc is invoked once per inner-selected
// string instead of once over ctx.Content.
func WithInner(inner *Selector) Option { return func(s *Selector) { s.inner = inner } }

func newSelector(name string, produce produceFunc, opts ...Option) *Selector {
	s := &Selector{name: name, produce: produce}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stringValues runs the full pipeline through step 3 (trim, filter_empty,
// format_str) but stops short of converter/multi collapse — this is the
// "list of strings" an outer selector consumes when this selector is used
// as its inner.
func (s *Selector) stringValues(ctx Context) ([]string, error) {
	inputs, err := s.inputSource(ctx)
	if err != nil {
		return nil, err
	}

	var raw []string
	for _, in := range inputs {
		out, err := s.produce(in, ctx)
		if err != nil {
			return nil, &types.ExtractionError{URL: requestURL(ctx), Selector: s.name, Err: err}
		}
		raw = append(raw, out...)
	}

	if s.trim {
		for i := range raw {
			raw[i] = strings.TrimSpace(raw[i])
		}
	}
	if s.filterEmp {
		filtered := raw[:0]
		for _, v := range raw {
			if v != "" {
				filtered = append(filtered, v)
			}
		}
		raw = filtered
	}
	if s.formatStr != "" {
		for i := range raw {
			raw[i] = fmt.Sprintf(s.formatStr, raw[i])
		}
	}
	return raw, nil
}

func (s *Selector) inputSource(ctx Context) ([]string, error) {
	if s.inner != nil {
		return s.inner.stringValues(ctx)
	}
	return []string{ctx.Content}, nil
}

// Select runs the full pipeline (§4.5 steps 1-5) and returns either a single
// value (string or converted type), nil, or a []any when Multi() was set.
func (s *Selector) Select(ctx Context) (any, error) {
	raw, err := s.stringValues(ctx)
	if err != nil {
		return nil, err
	}

	if s.converter != nil {
		converted := make([]any, len(raw))
		for i, v := range raw {
			vv := v
			converted[i] = s.converter(&vv)
		}
		if s.multi {
			return converted, nil
		}
		if len(converted) == 0 {
			return s.converter(nil), nil
		}
		return converted[0], nil
	}

	if s.multi {
		out := make([]any, len(raw))
		for i, v := range raw {
			out[i] = v
		}
		return out, nil
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw[0], nil
}

// SelectStrings is a convenience wrapper returning the raw (post trim/filter
// /format, pre-converter) string list regardless of Multi — useful for link
// selectors (§3 Link descriptor) which always need a list of URL strings.
func (s *Selector) SelectStrings(ctx Context) ([]string, error) {
	return s.stringValues(ctx)
}

func requestURL(ctx Context) string {
	if ctx.Response != nil && ctx.Response.Request != nil {
		return ctx.Response.Request.URL
	}
	return ""
}
