package rgaa

import (
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleFrameNoTitle = rule{
		test:           "2.1.1",
		impact:         model.ImpactHigh,
		description:    "Frame has no title attribute",
		recommendation: "Add a title attribute describing the frame content",
	}
	ruleFrameGenericTitle = rule{
		test:           "2.2.1",
		impact:         model.ImpactMedium,
		description:    "Frame title does not describe its content",
		recommendation: "Replace the generic title with one that identifies the embedded content",
	}
)

var genericFrameTitles = map[string]bool{
	"iframe": true, "frame": true, "untitled": true, "title": true,
	"content": true, "embed": true, "widget": true,
}

func (a *Analyzer) checkFrames() {
	for _, e := range a.byTag("iframe", "frame") {
		if isHidden(e) || isPresentational(e) {
			continue
		}
		title := attrTrim(e, "title")
		switch {
		case title == "":
			a.report(e, ruleFrameNoTitle)
		case genericFrameTitles[strings.ToLower(title)]:
			a.report(e, ruleFrameGenericTitle)
		}
	}
}
