package rgaa

import (
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleNoLandmarks = rule{
		test:           "12.6.1",
		impact:         model.ImpactLow,
		description:    "Page regions are not identified with landmarks",
		recommendation: "Use header, nav and footer elements or the matching ARIA roles",
	}
	ruleNoSkipLink = rule{
		test:           "12.7.1",
		impact:         model.ImpactMedium,
		description:    "Page has navigation but no skip link to the main content",
		recommendation: "Add a link to the main content as the first focusable element of the page",
	}
	rulePositiveTabindex = rule{
		test:           "12.8.1",
		impact:         model.ImpactMedium,
		description:    "Element uses a positive tabindex",
		recommendation: `Use tabindex="0" and follow the document order for the tab sequence`,
	}
)

var regionHints = []string{"header", "nav", "menu", "footer"}

func (a *Analyzer) checkNavigation() {
	var hasLandmark, hasRegionHint bool
	var navs []dom.Element
	for _, e := range a.elems {
		switch e.Tag() {
		case "header", "footer", "aside":
			hasLandmark = true
		case "nav":
			hasLandmark = true
			navs = append(navs, e)
		}
		switch role(e) {
		case "banner", "contentinfo", "complementary":
			hasLandmark = true
		case "navigation":
			hasLandmark = true
			navs = append(navs, e)
		}
		if e.Tag() == "div" && (containsAny(attrTrim(e, "id"), regionHints...) || containsAny(attrTrim(e, "class"), regionHints...)) {
			hasRegionHint = true
		}

		if ti, ok := e.Attr("tabindex"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(ti)); err == nil && n > 0 {
				a.report(e, rulePositiveTabindex)
			}
		}
	}

	if hasRegionHint && !hasLandmark {
		a.report(nil, ruleNoLandmarks)
	}
	if len(navs) > 0 && !a.hasSkipLink() {
		a.report(navs[0], ruleNoSkipLink)
	}
}

// hasSkipLink reports whether the first link of the page targets an anchor
// that exists in the page.
func (a *Analyzer) hasSkipLink() bool {
	for _, e := range a.byTag("a") {
		href, ok := e.Attr("href")
		if !ok {
			continue
		}
		target, isAnchor := strings.CutPrefix(strings.TrimSpace(href), "#")
		if !isAnchor || target == "" {
			return false
		}
		if _, exists := a.byID[target]; exists {
			return true
		}
		for _, n := range a.byTag("a") {
			if attrTrim(n, "name") == target {
				return true
			}
		}
		return false
	}
	return false
}
