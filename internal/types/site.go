package types

import (
	"regexp"
	"strings"
	"time"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/limiter"
)

// Site is an immutable host-scoped configuration bundle (§3): proxy,
// headers overlay, limiter, encoding, timeout. Host may be an exact name or
// the wildcard "*".
type Site struct {
	Host     string
	Limiter  *limiter.Limiter
	Headers  map[string]string
	Proxy    string
	Encoding string
	Timeout  time.Duration

	pattern *regexp.Regexp
}

// SiteOption configures a Site at construction time.
type SiteOption func(*Site)

func WithSiteLimiter(l *limiter.Limiter) SiteOption { return func(s *Site) { s.Limiter = l } }
func WithSiteHeaders(h map[string]string) SiteOption {
	return func(s *Site) {
		for k, v := range h {
			s.Headers[k] = v
		}
	}
}
func WithSiteProxy(proxy string) SiteOption         { return func(s *Site) { s.Proxy = proxy } }
func WithSiteEncoding(encoding string) SiteOption   { return func(s *Site) { s.Encoding = encoding } }
func WithSiteTimeout(timeout time.Duration) SiteOption { return func(s *Site) { s.Timeout = timeout } }

// NewSite builds a Site with spec defaults: encoding="utf-8", timeout=30s.
func NewSite(host string, opts ...SiteOption) *Site {
	s := &Site{
		Host:     host,
		Headers:  make(map[string]string),
		Encoding: "utf-8",
		Timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if strings.Contains(host, "*") {
		s.pattern = regexp.MustCompile("^" + strings.ReplaceAll(regexp.QuoteMeta(host), `\*`, ".*") + "$")
	}
	return s
}

// Matches reports whether this Site's host pattern matches the given host:
// exact match, or glob match if the pattern contains "*".
func (s *Site) Matches(host string) bool {
	if s.pattern != nil {
		return s.pattern.MatchString(host)
	}
	return s.Host == host
}

// SiteRegistry resolves a host to its Site, exact match first, then glob.
type SiteRegistry struct {
	exact map[string]*Site
	globs []*Site
}

// NewSiteRegistry builds a registry from a list of sites.
func NewSiteRegistry(sites []*Site) *SiteRegistry {
	reg := &SiteRegistry{exact: make(map[string]*Site)}
	for _, s := range sites {
		if s.pattern != nil {
			reg.globs = append(reg.globs, s)
		} else {
			reg.exact[s.Host] = s
		}
	}
	return reg
}

// Resolve looks up the Site for a host: exact match first, then the first
// matching glob pattern in registration order. Returns nil if none match.
func (r *SiteRegistry) Resolve(host string) *Site {
	if s, ok := r.exact[host]; ok {
		return s
	}
	for _, s := range r.globs {
		if s.Matches(host) {
			return s
		}
	}
	return nil
}
