package selector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// CSSOption configures attribute/text extraction mode for a CSS selector.
type CSSOption func(*cssConfig)

type cssConfig struct {
	text bool
	attr string
}

// Text selects the element's trimmed text content instead of its outer HTML.
func Text() CSSOption { return func(c *cssConfig) { c.text = true } }

// Attr selects a named attribute's value instead of outer HTML.
func Attr(name string) CSSOption { return func(c *cssConfig) { c.attr = name } }

// CSS builds a selector over parsed HTML using a CSS expression (goquery,
// backed by cascadia). The expression is compiled once here and reused by
// every produce call instead of being recompiled per document (§4.5).
// By default each match yields its outer HTML; Text() yields trimmed text;
// Attr(name) yields the named attribute's value.
func CSS(expr string, cssOpts []CSSOption, opts ...Option) *Selector {
	cfg := &cssConfig{}
	for _, o := range cssOpts {
		o(cfg)
	}

	sel, compileErr := cascadia.Compile(expr)

	produce := func(input string, ctx Context) ([]string, error) {
		if compileErr != nil {
			return nil, compileErr
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
		if err != nil {
			return nil, err
		}

		var values []string
		var selErr error
		doc.FindMatcher(sel).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			var val string
			switch {
			case cfg.attr != "":
				val, _ = sel.Attr(cfg.attr)
			case cfg.text:
				val = strings.TrimSpace(sel.Text())
			default:
				val, selErr = goquery.OuterHtml(sel)
				if selErr != nil {
					return false
				}
			}
			values = append(values, val)
			return true
		})
		if selErr != nil {
			return nil, selErr
		}
		return values, nil
	}

	return newSelector("css("+expr+")", produce, opts...)
}
