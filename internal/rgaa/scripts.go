package rgaa

import (
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleClickNoRole = rule{
		test:           "7.1.1",
		impact:         model.ImpactHigh,
		description:    "Non-interactive element handles clicks without a role or keyboard access",
		recommendation: "Use a button or link, or add a role, tabindex=\"0\" and key handlers",
	}
	ruleJavascriptLink = rule{
		test:           "7.1.2",
		impact:         model.ImpactLow,
		description:    `Link with a "javascript:" URL acts as a button`,
		recommendation: "Use a button element for actions that do not navigate",
	}
	ruleMouseOnly = rule{
		test:           "7.3.1",
		impact:         model.ImpactMedium,
		description:    "Mouse hover handler has no keyboard focus equivalent",
		recommendation: "Pair onmouseover with onfocus and onmouseout with onblur",
	}
)

var nonInteractiveTags = map[string]bool{
	"div": true, "span": true, "p": true, "li": true, "td": true,
	"img": true, "section": true, "article": true, "tr": true,
}

func (a *Analyzer) checkScripts() {
	for _, e := range a.elems {
		if isHidden(e) {
			continue
		}
		if nonInteractiveTags[e.Tag()] && dom.HasAttr(e, "onclick") &&
			role(e) == "" && !dom.HasAttr(e, "tabindex") {
			a.report(e, ruleClickNoRole)
		}
		if e.Tag() == "a" && strings.HasPrefix(strings.ToLower(attrTrim(e, "href")), "javascript:") && role(e) != "button" {
			a.report(e, ruleJavascriptLink)
		}
		hover := dom.HasAttr(e, "onmouseover") || dom.HasAttr(e, "onmouseenter")
		if hover && !dom.HasAttr(e, "onfocus") && !dom.HasAttr(e, "onfocusin") {
			a.report(e, ruleMouseOnly)
		}
	}
}
