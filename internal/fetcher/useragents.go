package fetcher

import "sync/atomic"

// defaultUserAgents is the built-in rotation pool used when neither the
// site nor the request overrides User-Agent (§2.3, §6).
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// uaRotator cycles through a pool of User-Agent strings, safe for
// concurrent use by multiple worker goroutines.
type uaRotator struct {
	pool  []string
	index atomic.Int64
}

func newUARotator(pool []string) *uaRotator {
	if len(pool) == 0 {
		pool = defaultUserAgents
	}
	return &uaRotator{pool: pool}
}

func (r *uaRotator) next() string {
	i := r.index.Add(1) % int64(len(r.pool))
	return r.pool[i]
}
