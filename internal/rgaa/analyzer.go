package rgaa

import (
	"strings"

	"github.com/nao1215/a11yscan/internal/dom"
	"github.com/nao1215/a11yscan/internal/model"
)

// RulePrefix prefixes every rule identifier produced by the analyzer.
const RulePrefix = "rgaa-"

// Metrics are page-level counters reported for diagnostics.
type Metrics struct {
	Elements int `json:"elements"`
	Images   int `json:"images"`
	Links    int `json:"links"`
	Forms    int `json:"forms"`
	Headings int `json:"headings"`
	Tables   int `json:"tables"`
	Scripts  int `json:"scripts"`
	Frames   int `json:"frames"`
}

// Result is the output of one analysis.
type Result struct {
	Violations []model.Violation `json:"violations"`

	// CheckedCriteria lists the evaluated criteria in catalog order.
	CheckedCriteria []string `json:"checkedCriteria"`

	Metrics Metrics `json:"metrics"`
}

// Unchecked returns the catalog criteria that no category evaluated.
func (r *Result) Unchecked() []string {
	checked := make(map[string]bool, len(r.CheckedCriteria))
	for _, c := range r.CheckedCriteria {
		checked[c] = true
	}
	var out []string
	for _, c := range Catalog {
		if !checked[c.ID] {
			out = append(out, c.ID)
		}
	}
	return out
}

// FailedCriteria returns the distinct criteria with at least one violation.
func (r *Result) FailedCriteria() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range r.Violations {
		if !seen[v.Criterion] {
			seen[v.Criterion] = true
			out = append(out, v.Criterion)
		}
	}
	return out
}

// rule describes one automated test of a criterion.
type rule struct {
	// test is "<criterion>.<test>", e.g. "1.1.1".
	test           string
	impact         model.Impact
	description    string
	recommendation string
}

func (r rule) criterion() string {
	i := strings.LastIndexByte(r.test, '.')
	return r.test[:i]
}

// category groups the checks of one topic.
type category struct {
	topic    Topic
	criteria []string
	check    func(*Analyzer)
}

var categories = []category{
	{TopicImages, []string{"1.1", "1.2", "1.3"}, (*Analyzer).checkImages},
	{TopicFrames, []string{"2.1", "2.2"}, (*Analyzer).checkFrames},
	{TopicColors, []string{"3.1", "3.2"}, (*Analyzer).checkColors},
	{TopicMultimedia, []string{"4.1", "4.3", "4.10", "4.11"}, (*Analyzer).checkMultimedia},
	{TopicTables, []string{"5.3", "5.4", "5.6", "5.7"}, (*Analyzer).checkTables},
	{TopicLinks, []string{"6.1", "6.2"}, (*Analyzer).checkLinks},
	{TopicScripts, []string{"7.1", "7.3"}, (*Analyzer).checkScripts},
	{TopicMandatory, []string{"8.1", "8.2", "8.3", "8.4", "8.5", "8.6", "8.7", "8.9", "8.10"}, (*Analyzer).checkMandatory},
	{TopicStructure, []string{"9.1", "9.2", "9.3"}, (*Analyzer).checkStructure},
	{TopicPresentation, []string{"10.1", "10.4", "10.7"}, (*Analyzer).checkPresentation},
	{TopicForms, []string{"11.1", "11.2", "11.5", "11.6", "11.9", "11.13"}, (*Analyzer).checkForms},
	{TopicNavigation, []string{"12.6", "12.7", "12.8"}, (*Analyzer).checkNavigation},
	{TopicConsultation, []string{"13.1", "13.2", "13.3", "13.8"}, (*Analyzer).checkConsultation},
}

// Analyzer runs the check categories against one document.
type Analyzer struct {
	doc        dom.Document
	elems      []dom.Element
	byID       map[string]dom.Element
	violations []model.Violation
	checked    map[string]bool
}

// New creates an analyzer for doc.
func New(doc dom.Document) *Analyzer {
	return &Analyzer{doc: doc}
}

// Analyze runs every category and returns the violations, the evaluated
// criteria and page metrics. It can be called repeatedly.
func (a *Analyzer) Analyze() *Result {
	a.elems = a.doc.Elements()
	a.byID = make(map[string]dom.Element)
	for _, e := range a.elems {
		if id, ok := e.Attr("id"); ok && id != "" {
			if _, dup := a.byID[id]; !dup {
				a.byID[id] = e
			}
		}
	}
	a.violations = make([]model.Violation, 0)
	a.checked = make(map[string]bool)

	for _, c := range categories {
		for _, id := range c.criteria {
			a.checked[id] = true
		}
		c.check(a)
	}

	res := &Result{
		Violations: a.violations,
		Metrics:    a.metrics(),
	}
	for _, c := range Catalog {
		if a.checked[c.ID] {
			res.CheckedCriteria = append(res.CheckedCriteria, c.ID)
		}
	}
	return res
}

// report records a violation of r on e. A nil e reports a page-level issue.
func (a *Analyzer) report(e dom.Element, r rule) {
	a.reportDesc(e, r, r.description)
}

func (a *Analyzer) reportDesc(e dom.Element, r rule, description string) {
	crit := r.criterion()
	level := model.LevelA
	if c, ok := Lookup(crit); ok {
		level = c.Level
	}
	v := model.Violation{
		RuleID:         RulePrefix + r.test,
		Criterion:      crit,
		Level:          level,
		Impact:         r.impact,
		Description:    description,
		Element:        "html",
		Recommendation: r.recommendation,
	}
	if e != nil {
		v.Element = Selector(e)
		v.HTMLSnippet = e.OuterHTML()
	}
	a.violations = append(a.violations, v)
}

func (a *Analyzer) byTag(tags ...string) []dom.Element {
	return dom.ByTag(a.elems, tags...)
}

// body returns the body element, or nil.
func (a *Analyzer) body() dom.Element {
	if b := a.byTag("body"); len(b) > 0 {
		return b[0]
	}
	return nil
}

func (a *Analyzer) metrics() Metrics {
	m := Metrics{Elements: len(a.elems)}
	for _, e := range a.elems {
		switch e.Tag() {
		case "img":
			m.Images++
		case "a":
			if dom.HasAttr(e, "href") {
				m.Links++
			}
		case "form":
			m.Forms++
		case "h1", "h2", "h3", "h4", "h5", "h6":
			m.Headings++
		case "table":
			m.Tables++
		case "script":
			m.Scripts++
		case "iframe", "frame":
			m.Frames++
		}
	}
	return m
}
