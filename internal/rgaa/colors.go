package rgaa

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

var (
	ruleColorOnly = rule{
		test:           "3.1.1",
		impact:         model.ImpactMedium,
		description:    "Information appears to be conveyed by text color alone",
		recommendation: "Add a non-color cue such as text, an icon or font weight",
	}
	ruleLowContrast = rule{
		test:           "3.2.1",
		impact:         model.ImpactHigh,
		description:    "Text contrast ratio is below the required minimum",
		recommendation: "Raise the contrast to at least 4.5:1, or 3:1 for large text",
	}
)

const (
	minContrast      = 4.5
	minContrastLarge = 3.0
	largeTextPx      = 24.0
)

func (a *Analyzer) checkColors() {
	for _, e := range a.elems {
		if isHidden(e) {
			continue
		}
		style := parseStyle(dom.AttrOr(e, "style", ""))

		if a.colorOnly(e, style) {
			a.report(e, ruleColorOnly)
		}

		fg, okFG := parseColor(style["color"])
		bg, okBG := parseColor(firstNonEmpty(style["background-color"], style["background"]))
		if !okFG || !okBG || e.Text() == "" {
			continue
		}
		ratio := contrastRatio(fg, bg)
		required := minContrast
		if px, ok := parsePx(style["font-size"]); ok && px >= largeTextPx {
			required = minContrastLarge
		}
		if ratio < required {
			a.reportDesc(e, ruleLowContrast,
				fmt.Sprintf("Text contrast ratio is %.2f:1, below the required %.1f:1", ratio, required))
		}
	}
}

// colorOnly flags short inline runs whose only distinction from the
// surrounding text is their color.
func (a *Analyzer) colorOnly(e dom.Element, style map[string]string) bool {
	switch e.Tag() {
	case "font":
		if !dom.HasAttr(e, "color") {
			return false
		}
	case "span":
		if _, ok := style["color"]; !ok || len(style) != 1 {
			return false
		}
	default:
		return false
	}
	text := e.Text()
	if text == "" || len([]rune(text)) > 40 {
		return false
	}
	p := e.Parent()
	if p == nil {
		return false
	}
	switch p.Tag() {
	case "p", "li", "td", "label", "dd":
	default:
		return false
	}
	return len(p.Text()) > len(text)
}

func parseStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "!important")))
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

type rgb struct{ r, g, b float64 }

var namedColors = map[string]rgb{
	"black":  {0, 0, 0},
	"white":  {255, 255, 255},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"yellow": {255, 255, 0},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
	"silver": {192, 192, 192},
	"orange": {255, 165, 0},
}

func parseColor(s string) (rgb, bool) {
	s = strings.TrimSpace(s)
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return rgb{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return rgb{}, false
		}
		return rgb{float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff)}, true
	}
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return rgb{}, false
		}
		var c [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || v < 0 || v > 255 {
				return rgb{}, false
			}
			c[i] = v
		}
		return rgb{c[0], c[1], c[2]}, true
	}
	return rgb{}, false
}

func luminance(c rgb) float64 {
	ch := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*ch(c.r) + 0.7152*ch(c.g) + 0.0722*ch(c.b)
}

func contrastRatio(a, b rgb) float64 {
	la, lb := luminance(a), luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

func parsePx(s string) (float64, bool) {
	if !strings.HasSuffix(s, "px") {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	return v, err == nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
