package model

import "time"

// PlanUsageSnapshot is the caller's plan and quota usage.
// The core never interprets it beyond handing it to the quota collaborator
// and echoing it back in the Response.
type PlanUsageSnapshot struct {
	Plan        string         `json:"plan,omitempty"`
	AuditsUsed  int            `json:"auditsUsed"`
	AuditsLimit int            `json:"auditsLimit,omitempty"`
	PeriodStart time.Time      `json:"periodStart,omitzero"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Clone returns a deep-enough copy for the quota collaborator to update.
func (p *PlanUsageSnapshot) Clone() *PlanUsageSnapshot {
	if p == nil {
		return nil
	}
	c := *p
	if p.Extra != nil {
		c.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Request is an audit request as received from a caller.
type Request struct {
	URL         string             `json:"url"`
	Engine      string             `json:"engine"`
	Language    string             `json:"language,omitempty"`
	CallerUsage *PlanUsageSnapshot `json:"callerUsage,omitempty"`
}

// Response is the orchestrator's answer. Exactly one of Audit and
// Comparative is set, depending on the engine selector.
type Response struct {
	// ID identifies the response once a ResultSink stored it.
	ID          string             `json:"id,omitempty"`
	Audit       *AuditResult       `json:"audit,omitempty"`
	Comparative *ComparativeResult `json:"comparative,omitempty"`
	Usage       *PlanUsageSnapshot `json:"usage,omitempty"`
}

// URL returns the audited URL.
func (r *Response) URL() string {
	switch {
	case r.Audit != nil:
		return r.Audit.URL
	case r.Comparative != nil:
		return r.Comparative.URL
	default:
		return ""
	}
}

// Timestamp returns the time the audit was produced.
func (r *Response) Timestamp() time.Time {
	switch {
	case r.Audit != nil:
		return r.Audit.Timestamp
	case r.Comparative != nil:
		return r.Comparative.Timestamp
	default:
		return time.Time{}
	}
}

// EngineLabel returns the engine name, or "all" for comparative responses.
func (r *Response) EngineLabel() string {
	if r.Audit != nil {
		return string(r.Audit.Engine)
	}
	return string(SelectAll)
}

// HeadlineScore is the audit score, or the comparative average score.
func (r *Response) HeadlineScore() int {
	switch {
	case r.Audit != nil:
		return r.Audit.Score
	case r.Comparative != nil:
		return r.Comparative.Summary.AverageScore
	default:
		return 0
	}
}

// HeadlineViolations is the audit's total, or the comparative unique count.
func (r *Response) HeadlineViolations() int {
	switch {
	case r.Audit != nil:
		return r.Audit.TotalViolations
	case r.Comparative != nil:
		return r.Comparative.TotalUniqueViolations
	default:
		return 0
	}
}
