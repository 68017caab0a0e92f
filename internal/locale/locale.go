// Package locale matches request languages to the supported summary
// languages and formats localized summaries with golang.org/x/text.
package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/a11yscan/internal/model"
)

// Supported lists the summary languages; the first one is the default.
var Supported = []language.Tag{language.English, language.French}

var matcher = language.NewMatcher(Supported)

// Message keys.
const (
	keyAudit       = "audit.summary"
	keyFailure     = "audit.failure"
	keyConformance = "audit.conformance"
	keyComparative = "comparative.summary"
	keyNoEngine    = "comparative.none"
	keyEngineError = "engine.failure.description"
	keyEngineFix   = "engine.failure.recommendation"
	keyPadding     = "wave.placeholder"
)

func init() {
	set(language.English, map[string]string{
		keyAudit:       "%s found %d violations, score %d/100",
		keyFailure:     "%s analysis failed: %s",
		keyConformance: "%s: %d%% conformance, %d violations on %d of %d criteria checked automatically",
		keyComparative: "%d of %d engines succeeded, %d unique violations, %d%% consensus",
		keyNoEngine:    "No engine succeeded",
		keyEngineError: "The %s engine could not analyze this page: %s",
		keyEngineFix:   "Retry the audit later or choose another engine",
		keyPadding:     "WAVE %s %d (details not recoverable from the report page)",
	})
	set(language.French, map[string]string{
		keyAudit:       "%s a détecté %d non-conformités, score %d/100",
		keyFailure:     "L'analyse %s a échoué : %s",
		keyConformance: "%s : %d %% de conformité, %d non-conformités sur %d des %d critères vérifiés automatiquement",
		keyComparative: "%d moteurs sur %d ont réussi, %d non-conformités uniques, consensus de %d %%",
		keyNoEngine:    "Aucun moteur n'a réussi",
		keyEngineError: "Le moteur %s n'a pas pu analyser cette page : %s",
		keyEngineFix:   "Relancez l'audit plus tard ou choisissez un autre moteur",
		keyPadding:     "WAVE %s %d (détails non récupérables depuis la page de rapport)",
	})
}

func set(tag language.Tag, msgs map[string]string) {
	for k, v := range msgs {
		if err := message.SetString(tag, k, v); err != nil {
			panic(err)
		}
	}
}

// Match returns the supported language closest to the given BCP 47 tags or
// Accept-Language values. It falls back to English.
func Match(langs ...string) language.Tag {
	_, idx := language.MatchStrings(matcher, langs...)
	return Supported[idx]
}

// printer returns a printer for the supported language closest to tag.
func printer(tag language.Tag) *message.Printer {
	_, idx, _ := matcher.Match(tag)
	return message.NewPrinter(Supported[idx])
}

// AuditSummary describes a successful single-engine run.
func AuditSummary(tag language.Tag, engine model.Engine, violations, score int) string {
	return printer(tag).Sprintf(keyAudit, engine.DisplayName(), violations, score)
}

// ConformanceSummary describes an in-page rule engine run.
func ConformanceSummary(tag language.Tag, violations, checked, catalog, score int) string {
	return printer(tag).Sprintf(keyConformance, model.EngineRGAA.DisplayName(), score, violations, checked, catalog)
}

// FailureSummary describes a failed run.
func FailureSummary(tag language.Tag, engine model.Engine, err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return printer(tag).Sprintf(keyFailure, engine.DisplayName(), msg)
}

// ComparativeSummary describes a comparative report.
func ComparativeSummary(tag language.Tag, succeeded, total, unique, consensus int) string {
	if succeeded == 0 {
		return printer(tag).Sprintf(keyNoEngine)
	}
	return printer(tag).Sprintf(keyComparative, succeeded, total, unique, consensus)
}

// EngineFailure returns the description and recommendation of the synthetic
// violation reported when a single engine fails.
func EngineFailure(tag language.Tag, engine model.Engine, err error) (string, string) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	p := printer(tag)
	return p.Sprintf(keyEngineError, engine.DisplayName(), msg), p.Sprintf(keyEngineFix)
}

// Placeholder is the description of a padded remote scanner finding.
func Placeholder(tag language.Tag, kind string, n int) string {
	return printer(tag).Sprintf(keyPadding, kind, n)
}
