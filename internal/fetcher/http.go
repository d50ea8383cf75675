// Package fetcher implements the Downloader (§4.8): a net/http-backed
// (Request, Site) -> Response function with header-merge precedence,
// per-site proxy/timeout/encoding, and transparent gzip/deflate/brotli
// decompression, grounded on the teacher's internal/fetcher/http.go.
package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

// Downloader is the engine's fetch abstraction: (Request, Site) -> Response.
type Downloader interface {
	Fetch(ctx context.Context, req *types.Request, site *types.Site) (*types.Response, error)
}

// HTTPDownloader implements Downloader over net/http.
type HTTPDownloader struct {
	client         *http.Client
	defaultHeaders map[string]string
	ua             *uaRotator
}

// Option configures an HTTPDownloader at construction time.
type Option func(*HTTPDownloader)

// WithDefaultHeaders sets the lowest-precedence header layer (§4.8).
func WithDefaultHeaders(h map[string]string) Option {
	return func(d *HTTPDownloader) {
		for k, v := range h {
			d.defaultHeaders[k] = v
		}
	}
}

// WithUserAgents overrides the built-in rotation pool (§2.3).
func WithUserAgents(pool []string) Option {
	return func(d *HTTPDownloader) { d.ua = newUARotator(pool) }
}

// New builds an HTTPDownloader. Decompression is handled explicitly so the
// transport's automatic gzip handling is disabled.
func New(opts ...Option) *HTTPDownloader {
	transport := &http.Transport{DisableCompression: true}
	d := &HTTPDownloader{
		client:         &http.Client{Transport: transport},
		defaultHeaders: make(map[string]string),
		ua:             newUARotator(nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch issues the HTTP call, merging headers as defaults ⊂ site ⊂ request
// (§4.8), resolving proxy/timeout/encoding from site, and transparently
// decompressing gzip/deflate/br bodies.
func (d *HTTPDownloader) Fetch(ctx context.Context, req *types.Request, site *types.Site) (*types.Response, error) {
	timeout := 30 * time.Second
	if site != nil && site.Timeout > 0 {
		timeout = site.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Data) > 0 {
		body = bytes.NewReader(req.Data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &types.DownloadError{URL: req.URL, Err: err}
	}

	httpReq.Header.Set("User-Agent", d.ua.next())
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range d.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	if site != nil {
		for k, v := range site.Headers {
			httpReq.Header.Set(k, v)
		}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := d.client
	if site != nil && site.Proxy != "" {
		proxyURL, err := url.Parse(site.Proxy)
		if err != nil {
			return nil, &types.DownloadError{URL: req.URL, Err: err}
		}
		transport := d.client.Transport.(*http.Transport).Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		client = &http.Client{Transport: transport}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, &types.DownloadError{URL: req.URL, Err: err}
	}
	defer httpResp.Body.Close()

	reader, err := decompressReader(httpResp)
	if err != nil {
		return nil, &types.DownloadError{URL: req.URL, StatusCode: httpResp.StatusCode, Err: err}
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.DownloadError{URL: req.URL, StatusCode: httpResp.StatusCode, Err: err}
	}

	headers := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return types.NewResponse(req, httpResp.StatusCode, content, headers, responseEncoding(httpResp, site)), nil
}

// Close releases idle connections held by the underlying transport.
func (d *HTTPDownloader) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// responseEncoding picks the server-declared charset from Content-Type,
// falling back to the site's configured encoding, then utf-8 (§4.8).
func responseEncoding(resp *http.Response, site *types.Site) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		if cs, ok := params["charset"]; ok && cs != "" {
			return cs
		}
	}
	if site != nil && site.Encoding != "" {
		return site.Encoding
	}
	return "utf-8"
}
