package rgaa

import (
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
)

// accessibleName approximates the accessible name computation:
// aria-labelledby, aria-label, text content with image alternatives, title.
func (a *Analyzer) accessibleName(e dom.Element) string {
	if ids, ok := e.Attr("aria-labelledby"); ok {
		var parts []string
		for _, id := range strings.Fields(ids) {
			if ref, ok := a.byID[id]; ok {
				parts = append(parts, ref.Text())
			}
		}
		if name := strings.TrimSpace(strings.Join(parts, " ")); name != "" {
			return name
		}
	}
	if label := strings.TrimSpace(dom.AttrOr(e, "aria-label", "")); label != "" {
		return label
	}

	parts := []string{e.Text()}
	for _, d := range dom.Descendants(e) {
		if d.Tag() == "img" || (d.Tag() == "input" && strings.EqualFold(dom.AttrOr(d, "type", ""), "image")) {
			parts = append(parts, dom.AttrOr(d, "alt", ""))
		}
		if d.Tag() == "svg" {
			parts = append(parts, dom.AttrOr(d, "aria-label", ""))
		}
	}
	if name := strings.TrimSpace(strings.Join(parts, " ")); name != "" {
		return name
	}
	return strings.TrimSpace(dom.AttrOr(e, "title", ""))
}

// isHidden reports whether e or one of its ancestors is removed from the
// accessibility tree through markup.
func isHidden(e dom.Element) bool {
	for cur := e; cur != nil; cur = cur.Parent() {
		if dom.HasAttr(cur, "hidden") {
			return true
		}
		if strings.EqualFold(dom.AttrOr(cur, "aria-hidden", ""), "true") {
			return true
		}
		if style := strings.ReplaceAll(strings.ToLower(dom.AttrOr(cur, "style", "")), " ", ""); strings.Contains(style, "display:none") {
			return true
		}
	}
	return false
}

func role(e dom.Element) string {
	return strings.ToLower(strings.TrimSpace(dom.AttrOr(e, "role", "")))
}

func isPresentational(e dom.Element) bool {
	r := role(e)
	return r == "presentation" || r == "none"
}

func attrTrim(e dom.Element, name string) string {
	return strings.TrimSpace(dom.AttrOr(e, name, ""))
}

// containsAny reports whether s contains one of the lower-case needles,
// ignoring case.
func containsAny(s string, needles ...string) bool {
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
