package selector

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
)

// XPathOption configures attribute/text extraction mode for an XPath selector.
type XPathOption func(*xpathConfig)

type xpathConfig struct {
	text bool
	attr string
}

// XPathText selects each matched node's trimmed inner text.
func XPathText() XPathOption { return func(c *xpathConfig) { c.text = true } }

// XPathAttr selects a named attribute's value from each matched node.
func XPathAttr(name string) XPathOption { return func(c *xpathConfig) { c.attr = name } }

// XPath builds a selector over parsed HTML using an XPath expression
// (antchfx/htmlquery + antchfx/xpath). The expression is compiled once here
// and reused by every produce call instead of being recompiled per document
// (§4.5). By default each match yields its serialized outer HTML.
func XPath(expr string, xpathOpts []XPathOption, opts ...Option) *Selector {
	cfg := &xpathConfig{}
	for _, o := range xpathOpts {
		o(cfg)
	}

	compiled, compileErr := xpath.Compile(expr)

	produce := func(input string, ctx Context) ([]string, error) {
		if compileErr != nil {
			return nil, compileErr
		}
		doc, err := htmlquery.Parse(strings.NewReader(input))
		if err != nil {
			return nil, err
		}
		nodes := htmlquery.QuerySelectorAll(doc, compiled)

		values := make([]string, 0, len(nodes))
		for _, node := range nodes {
			var val string
			switch {
			case cfg.attr != "":
				val = htmlquery.SelectAttr(node, cfg.attr)
			case cfg.text:
				val = strings.TrimSpace(htmlquery.InnerText(node))
			default:
				val = htmlquery.OutputHTML(node, true)
			}
			values = append(values, val)
		}
		return values, nil
	}

	return newSelector("xpath("+expr+")", produce, opts...)
}
