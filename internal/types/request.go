package types

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
)

// RequestState is a node in the request lifecycle state machine:
// NEW -> WAITING -> EXECUTING -> {COMPLETED, FAILED}; FAILED -> WAITING only
// via a store's ReplyFailed batch transition.
type RequestState string

const (
	StateNew       RequestState = "NEW"
	StateWaiting   RequestState = "WAITING"
	StateExecuting RequestState = "EXECUTING"
	StateCompleted RequestState = "COMPLETED"
	StateFailed    RequestState = "FAILED"
)

// Request is a unit of crawl work. Its ID is a fingerprint (§4.2) computed
// once at construction from method, URL, merged query, and body — two
// requests differing only in header/proxy/attrs share an ID.
type Request struct {
	ID         string
	URL        string
	Method     string
	Queries    map[string][]string
	Data       []byte
	Headers    map[string]string
	Priority   int
	Repeatable bool
	Attrs      map[string]any
	Inherit    bool
	Parent     string
	Depth      int
	State      RequestState
	Msg        string
}

// RequestOption configures a Request at construction time.
type RequestOption func(*Request)

func WithMethod(method string) RequestOption {
	return func(r *Request) { r.Method = method }
}

func WithQueries(q map[string][]string) RequestOption {
	return func(r *Request) {
		for k, v := range q {
			r.Queries[k] = append(r.Queries[k], v...)
		}
	}
}

func WithData(data []byte) RequestOption {
	return func(r *Request) { r.Data = data }
}

func WithHeaders(h map[string]string) RequestOption {
	return func(r *Request) {
		for k, v := range h {
			r.Headers[k] = v
		}
	}
}

func WithPriority(p int) RequestOption {
	return func(r *Request) { r.Priority = p }
}

func WithRepeatable(repeatable bool) RequestOption {
	return func(r *Request) { r.Repeatable = repeatable }
}

func WithAttrs(attrs map[string]any) RequestOption {
	return func(r *Request) {
		for k, v := range attrs {
			r.Attrs[k] = v
		}
	}
}

func WithInherit(inherit bool) RequestOption {
	return func(r *Request) { r.Inherit = inherit }
}

// NewRequest builds a Request, validating the URL and method and computing
// its fingerprint. Method defaults to GET, priority to 0, repeatable to true.
func NewRequest(rawURL string, opts ...RequestOption) (*Request, error) {
	if rawURL == "" {
		return nil, &InvalidRequestError{URL: rawURL, Reason: "empty URL"}
	}

	r := &Request{
		URL:        rawURL,
		Method:     http.MethodGet,
		Queries:    make(map[string][]string),
		Headers:    make(map[string]string),
		Priority:   0,
		Repeatable: true,
		Attrs:      make(map[string]any),
		Depth:      1,
		State:      StateNew,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		return nil, &InvalidRequestError{URL: rawURL, Method: r.Method, Reason: "unsupported method"}
	}
	if _, err := url.Parse(r.URL); err != nil {
		return nil, &InvalidRequestError{URL: rawURL, Method: r.Method, Reason: "malformed URL: " + err.Error()}
	}

	id, err := Fingerprint(r)
	if err != nil {
		return nil, &InvalidRequestError{URL: rawURL, Method: r.Method, Reason: "cannot fingerprint: " + err.Error()}
	}
	r.ID = id
	return r, nil
}

// Fingerprint computes a Request's identity (§4.2): the MD5 hex of
// METHOD + URL-with-sorted-merged-query + ('&'+body if present). Two
// requests whose query parameters are reshuffled (URL query vs. the
// explicit Queries map, or reordered within either) hash identically.
func Fingerprint(r *Request) (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", err
	}

	merged := url.Values{}
	for k, v := range u.Query() {
		merged[k] = append(merged[k], v...)
	}
	for k, v := range r.Queries {
		merged[k] = append(merged[k], v...)
	}
	for k := range merged {
		sort.Strings(merged[k])
	}

	canonical := *u
	canonical.RawQuery = merged.Encode() // Encode sorts by key and percent-encodes
	canonical.Fragment = ""

	s := r.Method + canonical.String()
	if len(r.Data) > 0 {
		s += "&" + string(r.Data)
	}

	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:]), nil
}

// Hostname returns the request URL's host, or "" if the URL cannot parse.
func (r *Request) Hostname() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Origin returns "scheme://host" for the request URL, used to synthesize a
// default Referer for child requests.
func (r *Request) Origin() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Clone returns a deep copy of the request, suitable for mutating before
// re-enqueuing (e.g. on retry).
func (r *Request) Clone() *Request {
	clone := *r
	clone.Queries = make(map[string][]string, len(r.Queries))
	for k, v := range r.Queries {
		clone.Queries[k] = append([]string(nil), v...)
	}
	clone.Headers = make(map[string]string, len(r.Headers))
	for k, v := range r.Headers {
		clone.Headers[k] = v
	}
	clone.Attrs = make(map[string]any, len(r.Attrs))
	for k, v := range r.Attrs {
		clone.Attrs[k] = v
	}
	clone.Data = append([]byte(nil), r.Data...)
	return &clone
}
