package selector

import "github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"

// TerminablePredicate decides whether a Link's child requests should be
// skipped for a particular bound result.
type TerminablePredicate func(result any, content string, resp *types.Response) bool

// Link is a schema-level hyperlink descriptor (§3, §4.6): it selects URL
// strings and turns each into a child Request, optionally copying
// already-bound result fields forward into the child's Attrs.
type Link struct {
	Selector   *Selector
	Method     string
	Queries    map[string][]string
	Data       []byte
	Headers    map[string]string
	Priority   int
	Repeatable bool
	Inherit    bool
	AttrProps  []string
	Terminable TerminablePredicate
}

type fieldBinder struct {
	name        string
	sel         *Selector
	embeddedSel *Selector
	embedded    *Schema
	set         func(result any, value any)
}

// Schema is a builder accumulating (fieldSetter, selector) pairs plus a link
// list for one result type — the Go-idiomatic stand-in for the source's
// class-attribute scanning (Design Note, §9, option (a)). Build one per
// result type, once, and reuse it across every Response.
type Schema struct {
	factory func() any
	fields  []fieldBinder
	links   []*Link
}

// NewSchema builds an empty Schema; factory produces a fresh zero-value
// result instance for each Bind call.
func NewSchema(factory func() any) *Schema {
	return &Schema{factory: factory}
}

// Field registers a plain selector-bound field. set assigns the selected
// value (string, []any, or a converted type) onto the result instance.
func (s *Schema) Field(name string, sel *Selector, set func(result any, value any)) *Schema {
	s.fields = append(s.fields, fieldBinder{name: name, sel: sel, set: set})
	return s
}

// Embedded registers a field bound by recursively running inner against the
// substring(s) matched by sel (§4.6 step 3). If sel is Multi(), set receives
// a []any of bound inner results; otherwise a single bound inner result (or
// nil if sel matched nothing).
func (s *Schema) Embedded(name string, sel *Selector, inner *Schema, set func(result any, value any)) *Schema {
	s.fields = append(s.fields, fieldBinder{name: name, embeddedSel: sel, embedded: inner, set: set})
	return s
}

// AddLink registers a schema-level hyperlink descriptor.
func (s *Schema) AddLink(link *Link) *Schema {
	s.links = append(s.links, link)
	return s
}

// Extend prepends base's fields and links ahead of s's own, so base-schema
// descriptors are discovered before subclass ones (§4.6). A field name also
// declared on s overrides base's version in place, keeping base's position.
func (s *Schema) Extend(base *Schema) *Schema {
	merged := make([]fieldBinder, 0, len(base.fields)+len(s.fields))
	index := make(map[string]int, len(base.fields))
	for _, f := range base.fields {
		index[f.name] = len(merged)
		merged = append(merged, f)
	}
	for _, f := range s.fields {
		if i, ok := index[f.name]; ok {
			merged[i] = f
		} else {
			index[f.name] = len(merged)
			merged = append(merged, f)
		}
	}
	s.fields = merged
	s.links = append(append([]*Link{}, base.links...), s.links...)
	return s
}

// Bind runs result binding (§4.6) for one Response: instantiates the result,
// populates its fields in registration order, recurses into embedded
// schemas, and evaluates every Link to produce child Requests.
func (s *Schema) Bind(content string, resp *types.Response) (any, []*types.Request, error) {
	result := s.factory()
	ctx := Context{Content: content, Response: resp}
	bound := make(map[string]any, len(s.fields))
	var children []*types.Request

	for _, f := range s.fields {
		if f.sel != nil {
			val, err := f.sel.Select(ctx)
			if err != nil {
				return nil, nil, err
			}
			f.set(result, val)
			bound[f.name] = val
			continue
		}

		snippets, err := f.embeddedSel.stringValues(ctx)
		if err != nil {
			return nil, nil, err
		}

		if f.embeddedSel.multi {
			innerResults := make([]any, 0, len(snippets))
			for _, snippet := range snippets {
				innerResult, innerChildren, err := f.embedded.Bind(snippet, resp)
				if err != nil {
					return nil, nil, err
				}
				innerResults = append(innerResults, innerResult)
				children = append(children, innerChildren...)
			}
			f.set(result, innerResults)
			bound[f.name] = innerResults
			continue
		}

		var snippet string
		if len(snippets) > 0 {
			snippet = snippets[0]
		}
		var innerResult any
		if len(snippets) > 0 {
			var innerChildren []*types.Request
			innerResult, innerChildren, err = f.embedded.Bind(snippet, resp)
			if err != nil {
				return nil, nil, err
			}
			children = append(children, innerChildren...)
		}
		f.set(result, innerResult)
		bound[f.name] = innerResult
	}

	for _, link := range s.links {
		if link.Terminable != nil && link.Terminable(result, content, resp) {
			continue
		}
		urls, err := link.Selector.SelectStrings(ctx)
		if err != nil {
			return nil, nil, err
		}
		method := link.Method
		if method == "" {
			method = "GET"
		}
		for _, rawURL := range urls {
			if rawURL == "" {
				continue
			}
			child, err := types.NewRequest(rawURL,
				types.WithMethod(method),
				types.WithQueries(link.Queries),
				types.WithData(link.Data),
				types.WithHeaders(link.Headers),
				types.WithPriority(link.Priority),
				types.WithRepeatable(link.Repeatable),
				types.WithInherit(link.Inherit),
			)
			if err != nil {
				continue
			}
			for _, prop := range link.AttrProps {
				if v, ok := bound[prop]; ok {
					child.Attrs[prop] = v
				}
			}
			children = append(children, child)
		}
	}

	return result, children, nil
}
