package dom

// Element is a read-only view of one element node.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() string

	// Attr returns the value of the named attribute and whether it is present.
	// Attribute names are matched case-insensitively.
	Attr(name string) (string, bool)

	// Text returns the concatenated text content of the element and its
	// descendants, excluding script and style contents, with whitespace
	// collapsed.
	Text() string

	// RawText returns the text of every descendant text node, unfiltered,
	// including script and style contents.
	RawText() string

	// Children returns the element children in document order.
	Children() []Element

	// Parent returns the parent element, or nil for the root element.
	Parent() Element

	// OuterHTML returns the serialized markup of the element.
	OuterHTML() string
}

// Document is a read-only view of a parsed page.
type Document interface {
	// Root returns the <html> element, or nil for an empty document.
	Root() Element

	// Elements returns every element in document order.
	Elements() []Element

	// HasDoctype reports whether the page declared a doctype.
	HasDoctype() bool
}

// AttrOr returns the attribute value or def when it is absent.
func AttrOr(e Element, name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// HasAttr reports whether the attribute is present, whatever its value.
func HasAttr(e Element, name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Closest returns the nearest ancestor (excluding e) whose tag is one of tags.
func Closest(e Element, tags ...string) Element {
	for p := e.Parent(); p != nil; p = p.Parent() {
		for _, t := range tags {
			if p.Tag() == t {
				return p
			}
		}
	}
	return nil
}

// Descendants returns every descendant element of e in document order.
func Descendants(e Element) []Element {
	var out []Element
	var walk func(Element)
	walk = func(n Element) {
		for _, c := range n.Children() {
			out = append(out, c)
			walk(c)
		}
	}
	walk(e)
	return out
}

// ByTag filters elements to those with one of the given tags.
func ByTag(elems []Element, tags ...string) []Element {
	var out []Element
	for _, e := range elems {
		for _, t := range tags {
			if e.Tag() == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
