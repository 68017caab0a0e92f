package normalize

import (
	"encoding/json"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
)

// AxeResults is the part of the axe.run result object the adapter keeps.
type AxeResults struct {
	Violations []AxeViolation `json:"violations"`
	TestEngine struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"testEngine"`
}

// AxeViolation is one failed rule with the nodes it failed on.
type AxeViolation struct {
	ID          string    `json:"id"`
	Impact      string    `json:"impact"`
	Description string    `json:"description"`
	Help        string    `json:"help"`
	HelpURL     string    `json:"helpUrl"`
	Tags        []string  `json:"tags"`
	Nodes       []AxeNode `json:"nodes"`
}

// AxeNode is one DOM node a rule failed on.
type AxeNode struct {
	Target         AxeTarget `json:"target"`
	HTML           string    `json:"html"`
	Impact         string    `json:"impact"`
	FailureSummary string    `json:"failureSummary"`
}

// AxeTarget is the selector path of a node. axe reports nodes inside shadow
// roots as nested arrays; they are flattened with " >>> ".
type AxeTarget []string

// UnmarshalJSON accepts both ["sel"] and [["host", "inner"]].
func (t *AxeTarget) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var nested []string
		if err := json.Unmarshal(r, &nested); err != nil {
			return err
		}
		out = append(out, strings.Join(nested, " >>> "))
	}
	*t = out
	return nil
}

// String returns the selector of the node.
func (t AxeTarget) String() string {
	return strings.Join(t, ", ")
}

// NormalizeAxe expands every failed rule into one violation per affected node.
func NormalizeAxe(res AxeResults) []model.Violation {
	out := make([]model.Violation, 0)
	for _, v := range res.Violations {
		criterion, _ := AxeCriterion(v.ID)
		for _, n := range v.Nodes {
			impact := n.Impact
			if impact == "" {
				impact = v.Impact
			}
			out = append(out, model.Violation{
				RuleID:         v.ID,
				Criterion:      criterion,
				Level:          axeLevel(impact),
				Impact:         axeImpact(impact),
				Description:    firstNonEmpty(v.Help, v.Description, v.ID),
				Element:        n.Target.String(),
				HTMLSnippet:    n.HTML,
				Recommendation: axeRecommendation(v, n),
			}.Sanitize())
		}
	}
	return out
}

func axeLevel(sourceImpact string) model.Level {
	if l, ok := axeMapping.Levels[strings.ToLower(sourceImpact)]; ok {
		return model.ParseLevel(l)
	}
	return model.ParseLevel(axeMapping.Defaults.Level)
}

func axeImpact(sourceImpact string) model.Impact {
	if i, ok := axeMapping.Impacts[strings.ToLower(sourceImpact)]; ok {
		return model.ParseImpact(i)
	}
	return model.ParseImpact(axeMapping.Defaults.Impact)
}

func axeRecommendation(v AxeViolation, n AxeNode) string {
	rec := strings.TrimSpace(n.FailureSummary)
	if rec == "" {
		rec = firstNonEmpty(v.Description, v.Help)
	}
	if v.HelpURL != "" {
		rec += " (" + v.HelpURL + ")"
	}
	return strings.TrimSpace(rec)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
