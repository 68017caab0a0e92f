package engine

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/nao1215/a11yscan/internal/locale"
	"github.com/nao1215/a11yscan/internal/normalize"
)

// waveProbeScript reports the completion signals of the results page.
const waveProbeScript = `(() => {
  const visible = (el) => !!el && !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length) && getComputedStyle(el).visibility !== 'hidden';
  const any = (sels) => sels.some((s) => Array.from(document.querySelectorAll(s)).some(visible));
  const text = document.body ? document.body.innerText : '';
  return {
    loader: any(['#loading', '.loading', '.spinner', '#wave_loading', '[aria-busy="true"]']),
    results: any(['#numbers', '#report_summary', '.summary_item', '#iconlist']),
    error: any(['.error_message', '#error_message', '.alert-danger']) || /invalid url|could not be (?:found|loaded)|url invalide/i.test(text),
    counts: /\d+\s+(?:errors?|erreurs?)/i.test(text) && /\d+\s+(?:alerts?|alertes?|avertissements?)/i.test(text),
  };
})()`

// waveExtractScript returns the page text and candidate finding nodes.
const waveExtractScript = `(() => {
  const text = document.body ? document.body.innerText : '';
  const seen = new Set();
  const nodes = [];
  const sels = ['#sidebar li', '#details li', '.icon_list li', 'li', '[class*="error"]', '[class*="alert"]', '[title]', '[aria-label]'];
  for (const sel of sels) {
    for (const el of document.querySelectorAll(sel)) {
      if (seen.has(el) || nodes.length >= 500) continue;
      seen.add(el);
      const own = (el.innerText || el.getAttribute('title') || el.getAttribute('aria-label') || '').trim();
      if (!own || own.length > 300) continue;
      const hints = [];
      for (let cur = el, i = 0; cur && i < 4; cur = cur.parentElement, i++) {
        if (typeof cur.className === 'string' && cur.className) hints.push(cur.className);
        if (cur.id) hints.push(cur.id);
      }
      const parent = el.parentElement;
      nodes.push({
        text: own,
        class: hints.join(' '),
        context: parent ? (parent.innerText || '').trim().slice(0, 200) : '',
      });
    }
  }
  return {text, nodes};
})()`

// wavePage is the output of waveExtractScript.
type wavePage struct {
	Text  string     `json:"text"`
	Nodes []WaveNode `json:"nodes"`
}

// WaveNode is a candidate finding element of the results page.
type WaveNode struct {
	// Text is the visible text (or title) of the element.
	Text string `json:"text"`
	// Class holds the class names and ids of the element and its ancestors.
	Class string `json:"class"`
	// Context is the text of the parent element.
	Context string `json:"context"`
}

// maxWaveCount caps mined totals so stray numbers cannot trigger huge padding.
const maxWaveCount = 1000

var (
	waveErrorCount   = regexp.MustCompile(`(?i)(\d+)\s+(?:errors?|erreurs?)`)
	waveAlertCount   = regexp.MustCompile(`(?i)(\d+)\s+(?:alerts?|alertes?|avertissements?)`)
	waveFeatureCount = regexp.MustCompile(`(?i)(\d+)\s+(?:features?|fonctionnalit[ée]s?)`)
	waveCountOnly    = regexp.MustCompile(`^\d+\s*\S*$`)
)

// WaveCounts holds the totals mined from the results page text.
type WaveCounts struct {
	Errors   int
	Alerts   int
	Features int

	HasErrors   bool
	HasAlerts   bool
	HasFeatures bool
}

// Recognized reports whether any count pattern was found.
func (c WaveCounts) Recognized() bool {
	return c.HasErrors || c.HasAlerts || c.HasFeatures
}

// ParseWaveCounts scans text for "<n> errors", "<n> alerts" and
// "<n> features" in English or French and keeps the largest match of each.
func ParseWaveCounts(text string) WaveCounts {
	var c WaveCounts
	c.Errors, c.HasErrors = maxMatch(waveErrorCount, text)
	c.Alerts, c.HasAlerts = maxMatch(waveAlertCount, text)
	c.Features, c.HasFeatures = maxMatch(waveFeatureCount, text)
	return c
}

func maxMatch(re *regexp.Regexp, text string) (int, bool) {
	best, found := 0, false
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = true
		best = max(best, min(n, maxWaveCount))
	}
	return best, found
}

// Accessibility vocabulary a finding description mentions.
var waveKeywords = []string{
	"alt", "alternative", "label", "contrast", "heading", "link", "button",
	"language", "title", "form", "aria", "table", "skip", "tabindex", "image",
	"caption", "empty", "missing", "redundant", "suspicious", "noscript",
	"langue", "titre", "lien", "contraste", "étiquette", "bouton", "vide",
	"manquant", "en-tête", "tableau",
}

// Keywords that make a finding an error when no class hint decides.
var waveCriticalKeywords = []string{
	"missing alternative", "missing form label", "empty link", "empty button",
	"empty heading", "contrast", "language missing", "broken aria",
	"manquant", "lien vide", "bouton vide", "contraste",
}

// ExtractWaveItems recovers individual findings from candidate nodes,
// classifying each as an error or an alert.
func ExtractWaveItems(nodes []WaveNode) (errs, alerts []normalize.WaveItem) {
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		text := strings.Join(strings.Fields(n.Text), " ")
		lower := strings.ToLower(text)
		if len(text) < 4 || len(text) > 200 || waveCountOnly.MatchString(text) {
			continue
		}
		if !containsAny(lower, waveKeywords) {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}

		item := normalize.WaveItem{
			Description: text,
			Context:     strings.TrimSpace(n.Context),
		}
		if waveKindOf(n, lower) == normalize.WaveError {
			item.Kind = normalize.WaveError
			errs = append(errs, item)
		} else {
			item.Kind = normalize.WaveAlert
			alerts = append(alerts, item)
		}
	}
	return errs, alerts
}

func waveKindOf(n WaveNode, lowerText string) normalize.WaveKind {
	hints := strings.ToLower(n.Class)
	switch {
	case containsAny(hints, []string{"alert", "warning", "avertissement"}):
		return normalize.WaveAlert
	case containsAny(hints, []string{"error", "erreur"}):
		return normalize.WaveError
	case containsAny(lowerText, waveCriticalKeywords):
		return normalize.WaveError
	default:
		return normalize.WaveAlert
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// BuildWaveReport combines mined counts and recovered findings.
//
// A count found in the page text is authoritative: the findings list is
// truncated or padded with synthetic placeholders to match it. Without a
// count the list length is used. The boolean reports whether the page text
// carried any recognizable count.
func BuildWaveReport(text string, nodes []WaveNode, reportURL string, lang language.Tag) (normalize.WaveReport, bool) {
	counts := ParseWaveCounts(text)
	errs, alerts := ExtractWaveItems(nodes)

	errs = fitWaveItems(errs, counts.Errors, counts.HasErrors, normalize.WaveError, lang)
	alerts = fitWaveItems(alerts, counts.Alerts, counts.HasAlerts, normalize.WaveAlert, lang)

	return normalize.WaveReport{
		Errors: errs,
		Alerts: alerts,
		Summary: normalize.WaveSummary{
			Errors:   len(errs),
			Alerts:   len(alerts),
			Features: counts.Features,
		},
		ReportURL: reportURL,
	}, counts.Recognized()
}

func fitWaveItems(items []normalize.WaveItem, total int, counted bool, kind normalize.WaveKind, lang language.Tag) []normalize.WaveItem {
	if !counted {
		return items
	}
	if len(items) > total {
		return items[:total]
	}
	for i := len(items); i < total; i++ {
		items = append(items, normalize.WaveItem{
			Kind:        kind,
			Description: locale.Placeholder(lang, string(kind), i+1),
			Synthetic:   true,
		})
	}
	return items
}
