package rgaa

import (
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleAmbiguousLink = rule{
		test:           "6.1.1",
		impact:         model.ImpactMedium,
		description:    "Link text is not explicit out of context",
		recommendation: "Rewrite the link text, or complete it with aria-label or title, so it names its destination",
	}
	ruleLinkNoName = rule{
		test:           "6.2.1",
		impact:         model.ImpactHigh,
		description:    "Link has no accessible name",
		recommendation: "Add text content, an image alternative or an aria-label to the link",
	}
)

var ambiguousLinkTexts = map[string]bool{
	"click here": true, "here": true, "read more": true, "more": true,
	"learn more": true, "link": true, "this link": true, "continue": true,
	"ici": true, "cliquez ici": true, "lire la suite": true,
	"en savoir plus": true, "suite": true, "plus": true,
}

func (a *Analyzer) checkLinks() {
	for _, e := range a.byTag("a") {
		if !dom.HasAttr(e, "href") || isHidden(e) {
			continue
		}
		name := a.accessibleName(e)
		if name == "" {
			a.report(e, ruleLinkNoName)
			continue
		}
		text := strings.ToLower(strings.Trim(e.Text(), " .…>»"))
		if ambiguousLinkTexts[text] && attrTrim(e, "aria-label") == "" &&
			attrTrim(e, "aria-labelledby") == "" && attrTrim(e, "title") == "" {
			a.report(e, ruleAmbiguousLink)
		}
	}
}
