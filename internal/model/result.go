package model

import (
	"math"
	"time"
)

// AuditResult is the normalized, scored output of one engine run.
// Build it with NewAuditResult so the derived fields stay consistent.
type AuditResult struct {
	URL                string         `json:"url"`
	Timestamp          time.Time      `json:"timestamp"`
	Engine             Engine         `json:"engine"`
	Violations         []Violation    `json:"violations"`
	TotalViolations    int            `json:"totalViolations"`
	Score              int            `json:"score"`
	Summary            string         `json:"summary"`
	ViolationsByImpact map[Impact]int `json:"violationsByImpact"`
	ViolationsByLevel  map[Level]int  `json:"violationsByLevel"`
	ExternalReportURL  string         `json:"externalReportUrl,omitempty"`
}

// NewAuditResult builds an AuditResult from normalized violations.
// Violations are sanitized, TotalViolations is derived from the slice,
// the score is clamped to [0,100] and both count maps carry every key.
func NewAuditResult(url string, engine Engine, ts time.Time, violations []Violation, score int, summary string) *AuditResult {
	clean := make([]Violation, len(violations))
	for i, v := range violations {
		clean[i] = v.Sanitize()
	}

	r := &AuditResult{
		URL:                url,
		Timestamp:          ts,
		Engine:             engine,
		Violations:         clean,
		TotalViolations:    len(clean),
		Score:              ClampScore(score),
		Summary:            summary,
		ViolationsByImpact: make(map[Impact]int, len(Impacts)),
		ViolationsByLevel:  make(map[Level]int, len(Levels)),
	}
	for _, i := range Impacts {
		r.ViolationsByImpact[i] = 0
	}
	for _, l := range Levels {
		r.ViolationsByLevel[l] = 0
	}
	for _, v := range clean {
		r.ViolationsByImpact[v.Impact]++
		r.ViolationsByLevel[v.Level]++
	}
	return r
}

// EmptyAuditResult returns a zeroed result: no violations and score 0.
func EmptyAuditResult(url string, engine Engine, ts time.Time, summary string) *AuditResult {
	return NewAuditResult(url, engine, ts, nil, 0, summary)
}

// ClampScore clamps a score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RoundScore rounds a raw score half away from zero and clamps it.
func RoundScore(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	return ClampScore(int(math.Round(raw)))
}

// EngineRun is one engine's contribution to a comparative report.
type EngineRun struct {
	Engine    Engine       `json:"engine"`
	Result    *AuditResult `json:"result"`
	ElapsedMs int64        `json:"elapsedMs"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
}

// NewSuccessfulRun wraps a result produced by an engine that completed.
func NewSuccessfulRun(result *AuditResult, elapsed time.Duration) EngineRun {
	return EngineRun{
		Engine:    result.Engine,
		Result:    result,
		ElapsedMs: elapsed.Milliseconds(),
		Success:   true,
	}
}

// NewFailedRun records a failed engine. The attached result is always zeroed,
// whatever partial data the engine produced.
func NewFailedRun(url string, engine Engine, ts time.Time, elapsed time.Duration, err error) EngineRun {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return EngineRun{
		Engine:    engine,
		Result:    EmptyAuditResult(url, engine, ts, engine.DisplayName()+" analysis failed: "+msg),
		ElapsedMs: elapsed.Milliseconds(),
		Success:   false,
		Error:     msg,
	}
}

// ComparativeSummary holds the derived metrics of a comparative report.
type ComparativeSummary struct {
	BestScore          int    `json:"bestScore"`
	WorstScore         int    `json:"worstScore"`
	AverageScore       int    `json:"averageScore"`
	MostReliableEngine Engine `json:"mostReliableEngine,omitempty"`
	ConsensusLevel     int    `json:"consensusLevel"`
	// Text is a localized one-line description of the report.
	Text string `json:"text,omitempty"`
}

// ComparativeResult merges the runs of several engines against one URL.
type ComparativeResult struct {
	URL                      string                 `json:"url"`
	Timestamp                time.Time              `json:"timestamp"`
	Engines                  []EngineRun            `json:"engines"`
	TotalUniqueViolations    int                    `json:"totalUniqueViolations"`
	CommonViolations         []Violation            `json:"commonViolations"`
	EngineSpecificViolations map[Engine][]Violation `json:"engineSpecificViolations"`
	Summary                  ComparativeSummary     `json:"summary"`
}

// SuccessfulRuns returns the runs that completed, in their original order.
func (c *ComparativeResult) SuccessfulRuns() []EngineRun {
	runs := make([]EngineRun, 0, len(c.Engines))
	for _, r := range c.Engines {
		if r.Success {
			runs = append(runs, r)
		}
	}
	return runs
}
