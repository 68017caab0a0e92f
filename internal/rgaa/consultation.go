package rgaa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleMetaRefresh = rule{
		test:           "13.1.1",
		impact:         model.ImpactHigh,
		description:    "Page refreshes or redirects automatically after a delay",
		recommendation: "Remove the timed refresh or let users control it",
	}
	ruleNewWindow = rule{
		test:           "13.2.1",
		impact:         model.ImpactLow,
		description:    "Link opens a new window without warning",
		recommendation: `Mention "new window" in the link text or title`,
	}
	ruleDocumentNoFormat = rule{
		test:           "13.3.1",
		impact:         model.ImpactLow,
		description:    "Link to a downloadable document does not state its format",
		recommendation: "Add the file format and size to the link text, e.g. (PDF, 2 MB)",
	}
	ruleMovingContent = rule{
		test:           "13.8.1",
		impact:         model.ImpactMedium,
		description:    "Moving or blinking content cannot be paused",
		recommendation: "Remove marquee and blink elements or provide a pause control",
	}
)

var documentExt = regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|pptx?|odt|ods|odp|rtf|csv|zip)(\?|#|$)`)

var newWindowWords = []string{"new window", "new tab", "nouvelle fenêtre", "nouvel onglet", "external"}

func (a *Analyzer) checkConsultation() {
	for _, e := range a.elems {
		switch e.Tag() {
		case "meta":
			if strings.EqualFold(attrTrim(e, "http-equiv"), "refresh") && refreshDelay(attrTrim(e, "content")) > 0 {
				a.report(e, ruleMetaRefresh)
			}
		case "a":
			if !dom.HasAttr(e, "href") || isHidden(e) {
				continue
			}
			label := a.accessibleName(e) + " " + attrTrim(e, "title")
			if strings.EqualFold(attrTrim(e, "target"), "_blank") && !containsAny(label, newWindowWords...) {
				a.report(e, ruleNewWindow)
			}
			if m := documentExt.FindStringSubmatch(attrTrim(e, "href")); m != nil && !containsAny(label, strings.ToLower(m[1])) {
				a.report(e, ruleDocumentNoFormat)
			}
		case "marquee", "blink":
			a.report(e, ruleMovingContent)
		}
	}
}

// refreshDelay returns the delay in seconds of a meta refresh content value.
func refreshDelay(content string) int {
	head, _, _ := strings.Cut(content, ";")
	head, _, _ = strings.Cut(head, ",")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0
	}
	return n
}
