package rgaa

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleNoDoctype = rule{
		test:           "8.1.1",
		impact:         model.ImpactMedium,
		description:    "Page has no doctype declaration",
		recommendation: "Start the document with <!DOCTYPE html>",
	}
	ruleDuplicateID = rule{
		test:           "8.2.1",
		impact:         model.ImpactMedium,
		description:    "Identifier is used by more than one element",
		recommendation: "Make every id attribute unique within the page",
	}
	ruleNoLang = rule{
		test:           "8.3.1",
		impact:         model.ImpactHigh,
		description:    "Default page language is not declared",
		recommendation: `Add a lang attribute to the html element, e.g. lang="en"`,
	}
	ruleInvalidLang = rule{
		test:           "8.4.1",
		impact:         model.ImpactMedium,
		description:    "Default page language is not a valid language code",
		recommendation: "Use a valid BCP 47 language tag",
	}
	ruleNoTitle = rule{
		test:           "8.5.1",
		impact:         model.ImpactHigh,
		description:    "Page has no title element",
		recommendation: "Add a title element to the document head",
	}
	ruleEmptyTitle = rule{
		test:           "8.6.1",
		impact:         model.ImpactMedium,
		description:    "Page title is empty or not relevant",
		recommendation: "Write a title that identifies the page content and the site",
	}
	ruleInvalidLangChange = rule{
		test:           "8.7.1",
		impact:         model.ImpactLow,
		description:    "Change of language uses an invalid language code",
		recommendation: "Use a valid BCP 47 language tag on elements in another language",
	}
	ruleEmptyParagraph = rule{
		test:           "8.9.1",
		impact:         model.ImpactLow,
		description:    "Empty paragraph used for spacing",
		recommendation: "Remove empty paragraphs and use CSS margins instead",
	}
	ruleInvalidDir = rule{
		test:           "8.10.1",
		impact:         model.ImpactLow,
		description:    "Text direction attribute has an invalid value",
		recommendation: `Use dir="ltr", dir="rtl" or dir="auto"`,
	}
)

var genericTitles = map[string]bool{
	"untitled": true, "untitled document": true, "document": true,
	"sans titre": true, "new page": true, "page": true,
}

func (a *Analyzer) checkMandatory() {
	if !a.doc.HasDoctype() {
		a.report(nil, ruleNoDoctype)
	}

	counts := make(map[string]int)
	for _, e := range a.elems {
		if id, ok := e.Attr("id"); ok && id != "" {
			counts[id]++
		}
	}
	for _, e := range a.elems {
		if id, ok := e.Attr("id"); ok && counts[id] > 1 {
			a.reportDesc(e, ruleDuplicateID, fmt.Sprintf("Identifier %q is used by %d elements", id, counts[id]))
		}
	}

	if root := a.doc.Root(); root != nil {
		lang := firstNonEmpty(attrTrim(root, "lang"), attrTrim(root, "xml:lang"))
		switch {
		case lang == "":
			a.report(root, ruleNoLang)
		case !validLang(lang):
			a.reportDesc(root, ruleInvalidLang, fmt.Sprintf("Default page language %q is not a valid language code", lang))
		}
	}

	titles := a.byTag("title")
	titles = filterOut(titles, func(t dom.Element) bool { return dom.Closest(t, "svg") != nil })
	switch {
	case len(titles) == 0:
		a.report(nil, ruleNoTitle)
	case titles[0].Text() == "" || genericTitles[strings.ToLower(titles[0].Text())]:
		a.report(titles[0], ruleEmptyTitle)
	}

	for _, e := range a.elems {
		if e.Tag() == "html" {
			continue
		}
		if lang := attrTrim(e, "lang"); lang != "" && !validLang(lang) {
			a.report(e, ruleInvalidLangChange)
		}
		if dir, ok := e.Attr("dir"); ok {
			switch strings.ToLower(strings.TrimSpace(dir)) {
			case "ltr", "rtl", "auto":
			default:
				a.report(e, ruleInvalidDir)
			}
		}
		if e.Tag() == "p" && len(e.Children()) == 0 && e.Text() == "" {
			a.report(e, ruleEmptyParagraph)
		}
	}
}

// validLang reports whether s is a well-formed language tag whose base
// language is known.
func validLang(s string) bool {
	if s == "" {
		return false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return false
	}
	base, conf := tag.Base()
	return conf != language.No && base.String() != "und"
}

func filterOut(elems []dom.Element, drop func(dom.Element) bool) []dom.Element {
	out := elems[:0:0]
	for _, e := range elems {
		if !drop(e) {
			out = append(out, e)
		}
	}
	return out
}
