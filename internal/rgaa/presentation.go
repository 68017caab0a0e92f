package rgaa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	rulePresentationalTag = rule{
		test:           "10.1.1",
		impact:         model.ImpactMedium,
		description:    "Presentational element used in the markup",
		recommendation: "Replace presentational elements with CSS",
	}
	rulePresentationalAttr = rule{
		test:           "10.1.2",
		impact:         model.ImpactLow,
		description:    "Presentational attribute used in the markup",
		recommendation: "Move presentational attributes to CSS",
	}
	ruleZoomDisabled = rule{
		test:           "10.4.1",
		impact:         model.ImpactHigh,
		description:    "Viewport prevents users from zooming",
		recommendation: "Remove user-scalable=no and keep maximum-scale at 2 or above",
	}
	ruleFocusHidden = rule{
		test:           "10.7.1",
		impact:         model.ImpactMedium,
		description:    "Focus indicator is removed",
		recommendation: "Keep a visible focus style when overriding outline",
	}
)

var presentationalTags = map[string]bool{
	"font": true, "center": true, "big": true, "blink": true, "marquee": true,
	"strike": true, "tt": true, "basefont": true,
}

var presentationalAttrs = []string{
	"align", "bgcolor", "background", "valign", "hspace", "vspace",
	"link", "vlink", "alink", "text",
}

var outlineNone = regexp.MustCompile(`outline(-style)?\s*:\s*(none|0)\b`)

var focusRuleWithoutOutline = regexp.MustCompile(`:focus[^{]*\{[^}]*outline(-style)?\s*:\s*(none|0)\b`)

func (a *Analyzer) checkPresentation() {
	for _, e := range a.elems {
		tag := e.Tag()
		if presentationalTags[tag] {
			a.report(e, rulePresentationalTag)
		}
		for _, attr := range presentationalAttrs {
			if !dom.HasAttr(e, attr) {
				continue
			}
			// text and link are legitimate on non-body elements.
			if (attr == "text" || attr == "link" || attr == "vlink" || attr == "alink") && tag != "body" {
				continue
			}
			a.report(e, rulePresentationalAttr)
			break
		}

		switch {
		case tag == "meta" && strings.EqualFold(attrTrim(e, "name"), "viewport"):
			if zoomDisabled(attrTrim(e, "content")) {
				a.report(e, ruleZoomDisabled)
			}
		case tag == "style":
			if focusRuleWithoutOutline.MatchString(strings.ToLower(e.RawText())) {
				a.report(e, ruleFocusHidden)
			}
		case isFocusable(e):
			if outlineNone.MatchString(strings.ToLower(dom.AttrOr(e, "style", ""))) {
				a.report(e, ruleFocusHidden)
			}
		}
	}
}

func zoomDisabled(content string) bool {
	for _, part := range strings.Split(strings.ToLower(content), ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch k {
		case "user-scalable":
			if v == "no" || v == "0" {
				return true
			}
		case "maximum-scale":
			if f, err := strconv.ParseFloat(v, 64); err == nil && f < 2 {
				return true
			}
		}
	}
	return false
}

func isFocusable(e dom.Element) bool {
	switch e.Tag() {
	case "a":
		return dom.HasAttr(e, "href")
	case "button", "input", "select", "textarea", "summary":
		return true
	}
	return dom.HasAttr(e, "tabindex")
}

