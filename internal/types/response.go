package types

import (
	"bytes"
	"io"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Response is the result of fetching a Request. Headers are stored with
// lower-cased names (§3). Text is a lazy, memoized decode using Encoding.
type Response struct {
	Request  *Request
	Status   int
	Content  []byte
	Headers  map[string]string
	Encoding string

	textOnce sync.Once
	text     string
	textErr  error

	docOnce sync.Once
	doc     *goquery.Document
	docErr  error
}

// NewResponse builds a Response, lower-casing header names.
func NewResponse(req *Request, status int, content []byte, headers map[string]string, encoding string) *Response {
	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lowered[normalizeHeaderName(k)] = v
	}
	if encoding == "" {
		encoding = "utf-8"
	}
	return &Response{
		Request:  req,
		Status:   status,
		Content:  content,
		Headers:  lowered,
		Encoding: encoding,
	}
}

func normalizeHeaderName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Header looks up a response header by case-insensitive name.
func (r *Response) Header(name string) string {
	return r.Headers[normalizeHeaderName(name)]
}

// Text decodes Content using Encoding, memoizing the result. Falls back to
// treating the bytes as already-UTF-8 if the declared encoding is unknown.
func (r *Response) Text() (string, error) {
	r.textOnce.Do(func() {
		reader, err := charset.NewReaderLabel(r.Encoding, bytes.NewReader(r.Content))
		if err != nil {
			r.text = string(r.Content)
			return
		}
		decoded, err := io.ReadAll(reader)
		if err != nil {
			r.textErr = err
			return
		}
		r.text = string(decoded)
	})
	return r.text, r.textErr
}

// Document returns a parsed goquery document over Content, memoized.
func (r *Response) Document() (*goquery.Document, error) {
	r.docOnce.Do(func() {
		r.doc, r.docErr = goquery.NewDocumentFromReader(bytes.NewReader(r.Content))
	})
	return r.doc, r.docErr
}

func (r *Response) IsSuccess() bool      { return r.Status >= 200 && r.Status < 300 }
func (r *Response) IsRedirect() bool     { return r.Status >= 300 && r.Status < 400 }
func (r *Response) IsClientError() bool  { return r.Status >= 400 && r.Status < 500 }
func (r *Response) IsServerError() bool  { return r.Status >= 500 && r.Status < 600 }
