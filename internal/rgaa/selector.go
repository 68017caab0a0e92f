package rgaa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
)

var cssIdent = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_-]*$`)

// Selector builds a stable CSS selector for e.
//
// Each step prefers, in order: the id attribute, a class that no sibling of
// the same tag shares, and the tag name with its :nth-of-type index. Steps
// are chained upwards until an element with an id, or body, is reached;
// body itself is left out of the chain.
func Selector(e dom.Element) string {
	var parts []string
	for cur := e; cur != nil; cur = cur.Parent() {
		if id, ok := cur.Attr("id"); ok && cssIdent.MatchString(id) {
			parts = append(parts, "#"+id)
			break
		}
		if t := cur.Tag(); cur != e && (t == "body" || t == "html") {
			break
		}
		parts = append(parts, segment(cur))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func segment(e dom.Element) string {
	tag := e.Tag()
	siblings := sameTagSiblings(e)

	for _, class := range classes(e) {
		if !cssIdent.MatchString(class) {
			continue
		}
		unique := true
		for _, s := range siblings {
			if s != e && hasClass(s, class) {
				unique = false
				break
			}
		}
		if unique {
			return tag + "." + class
		}
	}

	if len(siblings) > 1 {
		for i, s := range siblings {
			if s == e {
				return tag + ":nth-of-type(" + strconv.Itoa(i+1) + ")"
			}
		}
	}
	return tag
}

func sameTagSiblings(e dom.Element) []dom.Element {
	p := e.Parent()
	if p == nil {
		return []dom.Element{e}
	}
	return dom.ByTag(p.Children(), e.Tag())
}

func classes(e dom.Element) []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

func hasClass(e dom.Element, class string) bool {
	for _, c := range classes(e) {
		if c == class {
			return true
		}
	}
	return false
}
