package dom

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParse(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(`<!DOCTYPE html><html lang="en"><head><title>T</title><style>p{}</style></head>
<body><div id="a"><p class="x">Hello <b>world</b></p><script>var x = 1;</script></div></body></html>`)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}

	t.Run("doctype is detected", func(t *testing.T) {
		t.Parallel()
		if !doc.HasDoctype() {
			t.Error("expected doctype")
		}
	})

	t.Run("root is the html element", func(t *testing.T) {
		t.Parallel()
		if doc.Root() == nil || doc.Root().Tag() != "html" {
			t.Fatalf("unexpected root: %v", doc.Root())
		}
		if lang, ok := doc.Root().Attr("LANG"); !ok || lang != "en" {
			t.Errorf("expected lang=en, got %q (%v)", lang, ok)
		}
		if doc.Root().Parent() != nil {
			t.Error("expected root to have no parent")
		}
	})

	t.Run("elements are in document order", func(t *testing.T) {
		t.Parallel()
		var tags []string
		for _, e := range doc.Elements() {
			tags = append(tags, e.Tag())
		}
		got := strings.Join(tags, ",")
		want := "html,head,title,style,body,div,p,b,script"
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	})

	t.Run("text skips scripts and collapses whitespace", func(t *testing.T) {
		t.Parallel()
		div := ByTag(doc.Elements(), "div")[0]
		if got := div.Text(); got != "Hello world" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("raw text keeps style contents", func(t *testing.T) {
		t.Parallel()
		style := ByTag(doc.Elements(), "style")[0]
		if got := style.RawText(); got != "p{}" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("parents are stable", func(t *testing.T) {
		t.Parallel()
		p := ByTag(doc.Elements(), "p")[0]
		div := ByTag(doc.Elements(), "div")[0]
		if p.Parent() != div {
			t.Error("expected p's parent to be the same div element")
		}
		if Closest(p, "body") == nil {
			t.Error("expected to find body ancestor")
		}
	})
}

func TestParseWithoutDoctype(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(`<p>no doctype</p>`)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	if doc.HasDoctype() {
		t.Error("expected no doctype")
	}
	if got := AttrOr(ByTag(doc.Elements(), "p")[0], "id", "none"); got != "none" {
		t.Errorf("expected default attribute, got %q", got)
	}
}

func TestOuterHTMLTruncation(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(`<p>` + strings.Repeat("a", 1000) + `</p>`)
	if err != nil {
		t.Fatalf("ParseString returned error: %v", err)
	}
	p := ByTag(doc.Elements(), "p")[0]
	if got := p.OuterHTML(); len(got) != maxOuterHTML+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated snippet, got length %d", len(got))
	}
}

func TestOuterHTMLTruncationKeepsRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "two-byte runes", text: strings.Repeat("é", 200)},
		{name: "three-byte runes", text: strings.Repeat("€", 200)},
		{name: "four-byte runes", text: strings.Repeat("😀", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := ParseString(`<a href="/x" target="_blank">` + tt.text + `</a>`)
			if err != nil {
				t.Fatalf("ParseString returned error: %v", err)
			}
			got := ByTag(doc.Elements(), "a")[0].OuterHTML()
			if !utf8.ValidString(got) {
				t.Errorf("snippet is not valid UTF-8: %q", got)
			}
			if !strings.HasSuffix(got, "...") || len(got) > maxOuterHTML+3 {
				t.Errorf("expected a snippet of at most %d bytes ending with ..., got %d", maxOuterHTML+3, len(got))
			}
		})
	}
}
