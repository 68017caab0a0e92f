package rgaa

import (
	"fmt"
	"strconv"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleNoH1 = rule{
		test:           "9.1.1",
		impact:         model.ImpactHigh,
		description:    "Page has no level 1 heading",
		recommendation: "Add an h1 element describing the main content of the page",
	}
	ruleHeadingSkip = rule{
		test:           "9.1.2",
		impact:         model.ImpactMedium,
		description:    "Heading hierarchy skips a level",
		recommendation: "Use consecutive heading levels without gaps",
	}
	ruleEmptyHeading = rule{
		test:           "9.1.3",
		impact:         model.ImpactHigh,
		description:    "Heading is empty",
		recommendation: "Give every heading a text content or remove it",
	}
	ruleNoMain = rule{
		test:           "9.2.1",
		impact:         model.ImpactMedium,
		description:    "Page has no main landmark",
		recommendation: `Wrap the main content in a main element or role="main"`,
	}
	ruleManyMain = rule{
		test:           "9.2.2",
		impact:         model.ImpactMedium,
		description:    "Page has more than one visible main landmark",
		recommendation: "Keep a single visible main landmark per page",
	}
	ruleOrphanListItem = rule{
		test:           "9.3.1",
		impact:         model.ImpactMedium,
		description:    "List item is not inside a list",
		recommendation: "Place li elements inside ul, ol or menu",
	}
	ruleListChild = rule{
		test:           "9.3.2",
		impact:         model.ImpactMedium,
		description:    "List contains children other than list items",
		recommendation: "Only use li elements as direct children of ul and ol",
	}
)

func (a *Analyzer) checkStructure() {
	var hasH1 bool
	prev := 0
	for _, e := range a.elems {
		level := headingLevel(e)
		if level == 0 || isHidden(e) {
			continue
		}
		if level == 1 {
			hasH1 = true
		}
		if a.accessibleName(e) == "" {
			a.report(e, ruleEmptyHeading)
		}
		if prev > 0 && level > prev+1 {
			a.reportDesc(e, ruleHeadingSkip, fmt.Sprintf("Heading level jumps from %d to %d", prev, level))
		}
		prev = level
	}
	if !hasH1 {
		a.report(nil, ruleNoH1)
	}

	var mains []dom.Element
	for _, e := range a.elems {
		if (e.Tag() == "main" || role(e) == "main") && !isHidden(e) {
			mains = append(mains, e)
		}
	}
	switch {
	case len(mains) == 0:
		a.report(nil, ruleNoMain)
	case len(mains) > 1:
		for _, m := range mains[1:] {
			a.report(m, ruleManyMain)
		}
	}

	for _, e := range a.elems {
		switch e.Tag() {
		case "li":
			if p := e.Parent(); p == nil || !isListContainer(p) {
				a.report(e, ruleOrphanListItem)
			}
		case "ul", "ol":
			if isPresentational(e) || role(e) != "" {
				continue
			}
			for _, c := range e.Children() {
				switch c.Tag() {
				case "li", "script", "template":
				default:
					a.report(c, ruleListChild)
				}
			}
		}
	}
}

func isListContainer(e dom.Element) bool {
	switch e.Tag() {
	case "ul", "ol", "menu":
		return true
	}
	r := role(e)
	return r == "list" || r == "listbox" || r == "menu" || r == "menubar" || r == "tablist" || r == "tree"
}

// headingLevel returns 1-6 for headings, including role="heading", else 0.
func headingLevel(e dom.Element) int {
	switch e.Tag() {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return int(e.Tag()[1] - '0')
	}
	if role(e) == "heading" {
		if n, err := strconv.Atoi(attrTrim(e, "aria-level")); err == nil && n >= 1 && n <= 6 {
			return n
		}
		return 2
	}
	return 0
}
