package selector

import (
	"testing"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

func testResponse(t *testing.T, rawURL string) *types.Response {
	t.Helper()
	req, err := types.NewRequest(rawURL)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return types.NewResponse(req, 200, nil, nil, "utf-8")
}

func TestCSSTextAndMulti(t *testing.T) {
	html := `<ul><li class="item">one</li><li class="item">two</li></ul>`
	ctx := Context{Content: html, Response: testResponse(t, "https://example.com")}

	sel := CSS(".item", []CSSOption{Text()}, Multi())
	val, err := sel.Select(ctx)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	list, ok := val.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected 2 values, got %#v", val)
	}
	if list[0] != "one" || list[1] != "two" {
		t.Fatalf("unexpected values: %#v", list)
	}
}

func TestCSSHrefAttr(t *testing.T) {
	html := `<a href="/next?x=1">Next</a>`
	ctx := Context{Content: html, Response: testResponse(t, "https://example.com")}

	sel := CSS("a", []CSSOption{Attr("href")})
	val, err := sel.Select(ctx)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if val != "/next?x=1" {
		t.Fatalf("expected href, got %#v", val)
	}
}

func TestRegexWithInnerXPath(t *testing.T) {
	html := `<a href="/items/42">item</a>`
	ctx := Context{Content: html, Response: testResponse(t, "https://example.com")}

	inner := XPath("//a/@href", nil)
	sel := Regex(`/items/(\d+)`, []int{1}, WithInner(inner))
	val, err := sel.Select(ctx)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if val != "42" {
		t.Fatalf("expected 42, got %#v", val)
	}
}

func TestSingleModeEmptyReturnsNilOrConverterDefault(t *testing.T) {
	ctx := Context{Content: `<div></div>`, Response: testResponse(t, "https://example.com")}

	plain := CSS(".missing", []CSSOption{Text()})
	val, err := plain.Select(ctx)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if val != nil {
		t.Fatalf("expected nil, got %#v", val)
	}

	withConv := CSS(".missing", []CSSOption{Text()}, WithConverter(ToInt(-1)))
	val, err = withConv.Select(ctx)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if val != int64(-1) {
		t.Fatalf("expected converter default -1, got %#v", val)
	}
}

func TestJSONSelector(t *testing.T) {
	body := `{"items":[{"name":"a"},{"name":"b"}]}`
	ctx := Context{Content: body, Response: testResponse(t, "https://example.com")}

	sel := JSON("items.#.name", Multi())
	val, err := sel.Select(ctx)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	list, ok := val.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected 2 names, got %#v", val)
	}
}

type card struct {
	Title string
}

type page struct {
	Cards []any
}

func TestSchemaEmbeddedAndLinks(t *testing.T) {
	html := `<div class="item"><h2>A</h2></div><div class="item"><h2>B</h2></div><a class="next" href="/page/2">Next</a>`
	resp := testResponse(t, "https://example.com")

	cardSchema := NewSchema(func() any { return &card{} })
	cardSchema.Field("title", CSS("h2", []CSSOption{Text()}), func(r any, v any) {
		if s, ok := v.(string); ok {
			r.(*card).Title = s
		}
	})

	pageSchema := NewSchema(func() any { return &page{} })
	pageSchema.Embedded("cards", CSS(".item", []CSSOption{}, Multi()), cardSchema, func(r any, v any) {
		r.(*page).Cards = v.([]any)
	})
	pageSchema.AddLink(&Link{
		Selector:   CSS("a.next", []CSSOption{Attr("href")}),
		Repeatable: false,
	})

	result, children, err := pageSchema.Bind(html, resp)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	p := result.(*page)
	if len(p.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(p.Cards))
	}
	if p.Cards[0].(*card).Title != "A" || p.Cards[1].(*card).Title != "B" {
		t.Fatalf("unexpected card titles: %#v", p.Cards)
	}
	if len(children) != 1 {
		t.Fatalf("expected 1 child request, got %d", len(children))
	}
	if children[0].Repeatable {
		t.Fatalf("expected non-repeatable next-page request")
	}
}
