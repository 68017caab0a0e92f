package rgaa

import (
	"path"
	"regexp"
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleImgNoAlt = rule{
		test:           "1.1.1",
		impact:         model.ImpactCritical,
		description:    "Image has no alt attribute",
		recommendation: `Add an alt attribute describing the image, or alt="" when the image is decorative`,
	}
	ruleAreaNoAlt = rule{
		test:           "1.1.2",
		impact:         model.ImpactCritical,
		description:    "Clickable area of an image map has no text alternative",
		recommendation: "Add an alt attribute to every area element with an href",
	}
	ruleInputImageNoAlt = rule{
		test:           "1.1.3",
		impact:         model.ImpactCritical,
		description:    "Image button has no text alternative",
		recommendation: "Add an alt attribute describing the action of the image button",
	}
	ruleSVGNoName = rule{
		test:           "1.1.5",
		impact:         model.ImpactHigh,
		description:    `SVG image with role="img" has no accessible name`,
		recommendation: "Provide an aria-label, aria-labelledby or a title child element",
	}
	ruleDecorativeWithText = rule{
		test:           "1.2.1",
		impact:         model.ImpactLow,
		description:    "Decorative image carries a text alternative in title or aria-label",
		recommendation: "Remove title and aria-label from decorative images, or give the image a meaningful alt",
	}
	ruleAltIsFilename = rule{
		test:           "1.3.1",
		impact:         model.ImpactMedium,
		description:    "Image alternative is a file name or a generic word",
		recommendation: "Describe the information carried by the image instead of its file name",
	}
	ruleAltTooLong = rule{
		test:           "1.3.9",
		impact:         model.ImpactLow,
		description:    "Image alternative is longer than 150 characters",
		recommendation: "Keep the alt short and move the detailed description next to the image",
	}
)

// maxAltLength is the length above which an alt is considered a long description.
const maxAltLength = 150

var imageFileName = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|webp|bmp|tiff?|avif)$`)

var genericAlts = map[string]bool{
	"image": true, "img": true, "photo": true, "picture": true, "icon": true,
	"logo": true, "graphic": true, "spacer": true, "illustration": true,
}

func (a *Analyzer) checkImages() {
	for _, e := range a.elems {
		if isHidden(e) {
			continue
		}
		switch e.Tag() {
		case "img":
			a.checkImg(e)
		case "area":
			if dom.HasAttr(e, "href") && !dom.HasAttr(e, "alt") && attrTrim(e, "aria-label") == "" {
				a.report(e, ruleAreaNoAlt)
			}
		case "input":
			if strings.EqualFold(attrTrim(e, "type"), "image") && attrTrim(e, "alt") == "" &&
				attrTrim(e, "aria-label") == "" && attrTrim(e, "title") == "" {
				a.report(e, ruleInputImageNoAlt)
			}
		case "svg":
			if role(e) == "img" && a.svgName(e) == "" {
				a.report(e, ruleSVGNoName)
			}
		}
	}
}

func (a *Analyzer) checkImg(e dom.Element) {
	alt, hasAlt := e.Attr("alt")
	if !hasAlt {
		if isPresentational(e) || attrTrim(e, "aria-label") != "" || attrTrim(e, "aria-labelledby") != "" {
			return
		}
		a.report(e, ruleImgNoAlt)
		return
	}

	alt = strings.TrimSpace(alt)
	if alt == "" {
		if attrTrim(e, "title") != "" || attrTrim(e, "aria-label") != "" {
			a.report(e, ruleDecorativeWithText)
		}
		return
	}

	src := attrTrim(e, "src")
	if imageFileName.MatchString(alt) || genericAlts[strings.ToLower(alt)] ||
		(src != "" && strings.EqualFold(alt, path.Base(src))) {
		a.report(e, ruleAltIsFilename)
	}
	if len([]rune(alt)) > maxAltLength {
		a.report(e, ruleAltTooLong)
	}
}

func (a *Analyzer) svgName(e dom.Element) string {
	if name := attrTrim(e, "aria-label"); name != "" {
		return name
	}
	for _, id := range strings.Fields(dom.AttrOr(e, "aria-labelledby", "")) {
		if ref, ok := a.byID[id]; ok && ref.Text() != "" {
			return ref.Text()
		}
	}
	for _, c := range e.Children() {
		if c.Tag() == "title" && c.Text() != "" {
			return c.Text()
		}
	}
	return ""
}
