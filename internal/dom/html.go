package dom

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// maxOuterHTML bounds the markup kept for a violation snippet, in bytes.
const maxOuterHTML = 300

// Parse parses an HTML document.
func Parse(r io.Reader) (Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &htmlDocument{}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.DoctypeNode:
			d.doctype = true
		case html.ElementNode:
			if d.root == nil {
				d.root = wrap(c, nil)
			}
		}
	}
	if d.root != nil {
		d.elements = append([]Element{d.root}, Descendants(d.root)...)
	}
	return d, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (Document, error) {
	return Parse(strings.NewReader(s))
}

type htmlDocument struct {
	root     Element
	elements []Element
	doctype  bool
}

func (d *htmlDocument) Root() Element       { return d.root }
func (d *htmlDocument) Elements() []Element { return d.elements }
func (d *htmlDocument) HasDoctype() bool    { return d.doctype }

type htmlElement struct {
	n        *html.Node
	parent   *htmlElement
	children []Element
	cached   bool
}

func wrap(n *html.Node, parent *htmlElement) *htmlElement {
	return &htmlElement{n: n, parent: parent}
}

func (e *htmlElement) Tag() string {
	return strings.ToLower(e.n.Data)
}

func (e *htmlElement) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (e *htmlElement) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (e *htmlElement) RawText() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return b.String()
}

// Children caches the wrapped children so that element identity is stable
// across calls; the rule engine relies on it when comparing elements.
func (e *htmlElement) Children() []Element {
	if e.cached {
		return e.children
	}
	e.cached = true
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			e.children = append(e.children, wrap(c, e))
		}
	}
	return e.children
}

func (e *htmlElement) Parent() Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *htmlElement) OuterHTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.n); err != nil {
		return "<" + e.Tag() + ">"
	}
	s := buf.String()
	if len(s) <= maxOuterHTML {
		return s
	}
	// Cut on a rune boundary so the snippet stays valid UTF-8.
	cut := maxOuterHTML
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
