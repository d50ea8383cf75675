package types

import "testing"

func TestFingerprintIgnoresQueryOrderAndSource(t *testing.T) {
	a, err := NewRequest("https://example.com/search?b=2&a=1")
	if err != nil {
		t.Fatalf("NewRequest a: %v", err)
	}
	b, err := NewRequest("https://example.com/search?a=1&b=2")
	if err != nil {
		t.Fatalf("NewRequest b: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("expected reordered query strings to fingerprint identically, got %s vs %s", a.ID, b.ID)
	}

	c, err := NewRequest("https://example.com/search", WithQueries(map[string][]string{"a": {"1"}, "b": {"2"}}))
	if err != nil {
		t.Fatalf("NewRequest c: %v", err)
	}
	if a.ID != c.ID {
		t.Errorf("expected explicit Queries map to merge into URL query identically, got %s vs %s", a.ID, c.ID)
	}
}

func TestFingerprintDiffersOnMethodOrBody(t *testing.T) {
	get, _ := NewRequest("https://example.com/submit")
	post, _ := NewRequest("https://example.com/submit", WithMethod("POST"))
	if get.ID == post.ID {
		t.Error("expected GET and POST to the same URL to fingerprint differently")
	}

	post1, _ := NewRequest("https://example.com/submit", WithMethod("POST"), WithData([]byte("a=1")))
	post2, _ := NewRequest("https://example.com/submit", WithMethod("POST"), WithData([]byte("a=2")))
	if post1.ID == post2.ID {
		t.Error("expected differing bodies to fingerprint differently")
	}
}

func TestFingerprintIgnoresHeadersAndAttrs(t *testing.T) {
	plain, _ := NewRequest("https://example.com/page")
	withHeaders, _ := NewRequest("https://example.com/page",
		WithHeaders(map[string]string{"X-Custom": "1"}),
		WithAttrs(map[string]any{"foo": "bar"}),
	)
	if plain.ID != withHeaders.ID {
		t.Error("expected headers/attrs to not affect fingerprint identity")
	}
}

func TestNewRequestRejectsEmptyURL(t *testing.T) {
	if _, err := NewRequest(""); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestNewRequestRejectsUnsupportedMethod(t *testing.T) {
	if _, err := NewRequest("https://example.com", WithMethod("DELETE")); err == nil {
		t.Error("expected error for unsupported method")
	}
}

func TestNewRequestDefaults(t *testing.T) {
	r, err := NewRequest("https://example.com")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if r.Method != "GET" {
		t.Errorf("expected default method GET, got %s", r.Method)
	}
	if r.Priority != 0 {
		t.Errorf("expected default priority 0, got %d", r.Priority)
	}
	if !r.Repeatable {
		t.Error("expected default repeatable true")
	}
	if r.Depth != 1 {
		t.Errorf("expected default depth 1 (seed), got %d", r.Depth)
	}
	if r.ID == "" {
		t.Error("expected ID to be assigned")
	}
}

func TestOriginAndHostname(t *testing.T) {
	r, _ := NewRequest("https://example.com:8443/path?x=1")
	if got := r.Hostname(); got != "example.com" {
		t.Errorf("Hostname() = %q, want example.com", got)
	}
	if got := r.Origin(); got != "https://example.com:8443" {
		t.Errorf("Origin() = %q, want https://example.com:8443", got)
	}
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	r, _ := NewRequest("https://example.com", WithHeaders(map[string]string{"A": "1"}))
	clone := r.Clone()
	clone.Headers["A"] = "2"
	clone.Attrs["new"] = true

	if r.Headers["A"] != "1" {
		t.Error("mutating clone's headers affected original")
	}
	if _, ok := r.Attrs["new"]; ok {
		t.Error("mutating clone's attrs affected original")
	}
}
