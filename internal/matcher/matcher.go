// Package matcher implements predicates over a Response (§4.4), used to
// select which Processor runs against a given fetch result.
package matcher

import (
	"regexp"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

// Matcher decides whether a Processor should run against a Response.
type Matcher func(resp *types.Response) bool

// All matches every response unconditionally.
func All(resp *types.Response) bool { return true }

// Host matches responses whose request URL host equals h exactly.
func Host(h string) Matcher {
	return func(resp *types.Response) bool {
		if resp.Request == nil {
			return false
		}
		return resp.Request.Hostname() == h
	}
}

// URL matches responses whose request URL matches the given regex.
func URL(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(resp *types.Response) bool {
		if resp.Request == nil {
			return false
		}
		return re.MatchString(resp.Request.URL)
	}
}

// Header matches responses carrying a header whose value matches pattern.
// Lookup is case-insensitive (Response headers are stored lower-cased).
func Header(name, pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(resp *types.Response) bool {
		return re.MatchString(resp.Header(name))
	}
}

// ContentType matches responses whose Content-Type header matches pattern.
func ContentType(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(resp *types.Response) bool {
		return re.MatchString(resp.Header("content-type"))
	}
}

// And matches when every sub-matcher matches.
func And(matchers ...Matcher) Matcher {
	return func(resp *types.Response) bool {
		for _, m := range matchers {
			if !m(resp) {
				return false
			}
		}
		return true
	}
}

// Or matches when any sub-matcher matches.
func Or(matchers ...Matcher) Matcher {
	return func(resp *types.Response) bool {
		for _, m := range matchers {
			if m(resp) {
				return true
			}
		}
		return false
	}
}

// Not negates a matcher.
func Not(m Matcher) Matcher {
	return func(resp *types.Response) bool { return !m(resp) }
}

// Precompiled content-type matchers for common media families.
var (
	JSON        = ContentType(`(?i)application/json`)
	HTML        = ContentType(`(?i)text/html`)
	Image       = ContentType(`(?i)image/`)
	Video       = ContentType(`(?i)video/`)
	Audio       = ContentType(`(?i)audio/`)
	PDF         = ContentType(`(?i)application/pdf`)
	Word        = ContentType(`(?i)application/(vnd\.openxmlformats-officedocument\.wordprocessingml|msword)`)
	Excel       = ContentType(`(?i)application/(vnd\.openxmlformats-officedocument\.spreadsheetml|vnd\.ms-excel)`)
	OctetStream = ContentType(`(?i)application/octet-stream`)
	Media       = Or(Image, Video, Audio)
)
