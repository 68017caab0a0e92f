package rgaa

import (
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleAudioNoTranscript = rule{
		test:           "4.1.1",
		impact:         model.ImpactHigh,
		description:    "Audio content has no transcript",
		recommendation: "Provide a text transcript next to the audio, referenced with aria-describedby or a link",
	}
	ruleVideoNoCaptions = rule{
		test:           "4.3.1",
		impact:         model.ImpactHigh,
		description:    "Video has no captions track",
		recommendation: `Add a <track kind="captions"> element to the video`,
	}
	ruleAutoplay = rule{
		test:           "4.10.1",
		impact:         model.ImpactMedium,
		description:    "Media plays sound automatically",
		recommendation: "Remove autoplay or mute the media by default",
	}
	ruleNoControls = rule{
		test:           "4.11.1",
		impact:         model.ImpactMedium,
		description:    "Media has no keyboard-accessible controls",
		recommendation: "Add the controls attribute or provide accessible custom controls",
	}
)

var transcriptWords = []string{"transcript", "transcription"}

func (a *Analyzer) checkMultimedia() {
	for _, e := range a.byTag("audio", "video") {
		if isHidden(e) {
			continue
		}
		switch e.Tag() {
		case "audio":
			if !a.hasTranscript(e) {
				a.report(e, ruleAudioNoTranscript)
			}
		case "video":
			if !hasTrack(e, "captions", "subtitles") {
				a.report(e, ruleVideoNoCaptions)
			}
		}
		if dom.HasAttr(e, "autoplay") && !dom.HasAttr(e, "muted") {
			a.report(e, ruleAutoplay)
		}
		if !dom.HasAttr(e, "controls") {
			a.report(e, ruleNoControls)
		}
	}
}

func hasTrack(e dom.Element, kinds ...string) bool {
	for _, c := range e.Children() {
		if c.Tag() != "track" {
			continue
		}
		kind := strings.ToLower(attrTrim(c, "kind"))
		for _, k := range kinds {
			if kind == k {
				return true
			}
		}
	}
	return false
}

func (a *Analyzer) hasTranscript(e dom.Element) bool {
	for _, id := range strings.Fields(dom.AttrOr(e, "aria-describedby", "")) {
		if _, ok := a.byID[id]; ok {
			return true
		}
	}
	p := e.Parent()
	if p == nil {
		return false
	}
	for _, s := range p.Children() {
		if s == e {
			continue
		}
		if containsAny(s.Text(), transcriptWords...) || containsAny(dom.AttrOr(s, "href", ""), transcriptWords...) {
			return true
		}
	}
	return false
}
