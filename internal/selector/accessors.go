package selector

import (
	"fmt"
	"net/url"
)

// AttrSelector reads a key from the originating request's Attrs map.
func AttrSelector(key string, opts ...Option) *Selector {
	produce := func(_ string, ctx Context) ([]string, error) {
		if ctx.Response == nil || ctx.Response.Request == nil {
			return nil, nil
		}
		v, ok := ctx.Response.Request.Attrs[key]
		if !ok {
			return nil, nil
		}
		return []string{toString(v)}, nil
	}
	return newSelector("attr("+key+")", produce, opts...)
}

// QuerySelector reads a key from the originating request's Queries map,
// falling back to the URL's own query string if the key isn't set there.
func QuerySelector(key string, opts ...Option) *Selector {
	produce := func(_ string, ctx Context) ([]string, error) {
		if ctx.Response == nil || ctx.Response.Request == nil {
			return nil, nil
		}
		req := ctx.Response.Request
		if vals, ok := req.Queries[key]; ok {
			return vals, nil
		}
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, nil
		}
		return u.Query()[key], nil
	}
	return newSelector("query("+key+")", produce, opts...)
}

// HeaderSelector reads a header from the originating request.
func HeaderSelector(name string, opts ...Option) *Selector {
	produce := func(_ string, ctx Context) ([]string, error) {
		if ctx.Response == nil || ctx.Response.Request == nil {
			return nil, nil
		}
		if v, ok := ctx.Response.Request.Headers[name]; ok {
			return []string{v}, nil
		}
		return nil, nil
	}
	return newSelector("header("+name+")", produce, opts...)
}

// URLOption configures URL encoding behavior for a URLSelector.
type URLOption func(*urlConfig)

type urlConfig struct {
	encode bool
	decode bool
}

// PercentEncode percent-encodes the URL before returning it.
func PercentEncode() URLOption { return func(c *urlConfig) { c.encode = true } }

// PercentDecode percent-decodes the URL before returning it.
func PercentDecode() URLOption { return func(c *urlConfig) { c.decode = true } }

// URLSelector returns the originating request's URL, optionally percent
// -encoded or percent-decoded.
func URLSelector(urlOpts []URLOption, opts ...Option) *Selector {
	cfg := &urlConfig{}
	for _, o := range urlOpts {
		o(cfg)
	}
	produce := func(_ string, ctx Context) ([]string, error) {
		if ctx.Response == nil || ctx.Response.Request == nil {
			return nil, nil
		}
		v := ctx.Response.Request.URL
		switch {
		case cfg.encode:
			v = url.QueryEscape(v)
		case cfg.decode:
			if decoded, err := url.QueryUnescape(v); err == nil {
				v = decoded
			}
		}
		return []string{v}, nil
	}
	return newSelector("url()", produce, opts...)
}

// IDSelector returns the originating request's fingerprint id.
func IDSelector(opts ...Option) *Selector {
	produce := func(_ string, ctx Context) ([]string, error) {
		if ctx.Response == nil || ctx.Response.Request == nil {
			return nil, nil
		}
		return []string{ctx.Response.Request.ID}, nil
	}
	return newSelector("id()", produce, opts...)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(v)
	}
}
