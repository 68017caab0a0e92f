// Package orchestrator validates audit requests and dispatches them to a
// single engine or to the comparative aggregator.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/a11yscan/internal/compare"
	"github.com/nao1215/a11yscan/internal/engine"
	"github.com/nao1215/a11yscan/internal/locale"
	"github.com/nao1215/a11yscan/internal/model"
)

// QuotaChecker admits requests against the caller's plan. A rejection is
// returned to the caller and nothing runs.
type QuotaChecker interface {
	Check(ctx context.Context, usage *model.PlanUsageSnapshot, sel model.EngineSelector) (*model.PlanUsageSnapshot, error)
}

// ResultSink stores responses. It returns the id assigned to the response.
type ResultSink interface {
	Save(ctx context.Context, resp *model.Response) (string, error)
}

// SiteSettings returns per-host request headers.
type SiteSettings interface {
	Headers(host string) map[string]string
}

// Orchestrator is the entry point of the audit core.
//
// Handle runs a fixed sequence for every request: validate the URL and the
// engine selector, admit the request against the quota, dispatch it to one
// adapter or to the aggregator, then hand the response to the sink. Any
// collaborator left nil is skipped.
type Orchestrator struct {
	// adapters holds at most one adapter per engine. A selector naming an
	// engine without an adapter is rejected with ErrUnknownEngineSelector.
	adapters map[model.Engine]engine.Adapter

	// agg runs the adapters of the "all" selector, in model.Engines order.
	agg *compare.Aggregator

	// quota admits requests. Nil means every request is unmetered.
	quota QuotaChecker

	// sink stores responses. A failed save is logged and the response is
	// still returned.
	sink ResultSink

	// sites supplies per-host headers (cookies, authorization) that are
	// copied into engine.Target.Headers.
	sites SiteSettings

	// logger receives request and engine logs.
	logger *slog.Logger

	// now timestamps failures and comparative reports.
	now func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithQuota enables quota checks.
func WithQuota(q QuotaChecker) Option {
	return func(o *Orchestrator) {
		o.quota = q
	}
}

// WithResultSink stores every response.
func WithResultSink(s ResultSink) Option {
	return func(o *Orchestrator) {
		o.sink = s
	}
}

// WithSiteSettings adds per-site headers to sessions.
func WithSiteSettings(s SiteSettings) Option {
	return func(o *Orchestrator) {
		o.sites = s
	}
}

// WithClock sets the function used to timestamp failures and reports.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New returns an Orchestrator over one adapter per engine.
func New(adapters []engine.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters: make(map[model.Engine]engine.Adapter, len(adapters)),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	ordered := make([]engine.Adapter, 0, len(adapters))
	for _, e := range model.Engines {
		for _, a := range adapters {
			if a.Engine() == e {
				o.adapters[e] = a
				ordered = append(ordered, a)
			}
		}
	}
	o.agg = compare.New(ordered, compare.WithLogger(o.logger), compare.WithClock(o.now))
	return o
}

// ValidateURL checks that raw is an absolute http or https URL and returns
// it parsed.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: missing url", model.ErrConfiguration)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %q: %w", model.ErrConfiguration, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", model.ErrConfiguration, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: url %q has no host", model.ErrConfiguration, raw)
	}
	return u, nil
}

// Handle runs one audit request.
//
// Configuration, selector and quota problems are returned as errors before
// any engine runs. Engine failures never are: a failed single-engine audit
// reports one explanatory violation with score 0, and failed engines of a
// comparative audit are marked in their EngineRun.
func (o *Orchestrator) Handle(ctx context.Context, req model.Request) (*model.Response, error) {
	u, err := ValidateURL(req.URL)
	if err != nil {
		return nil, err
	}
	sel, err := model.ParseEngineSelector(req.Engine)
	if err != nil {
		return nil, err
	}
	if !sel.IsAll() {
		if _, ok := o.adapters[sel.Engine()]; !ok {
			return nil, fmt.Errorf("%w: %s is not enabled", model.ErrUnknownEngineSelector, sel)
		}
	}

	usage := req.CallerUsage.Clone()
	if o.quota != nil {
		usage, err = o.quota.Check(ctx, req.CallerUsage, sel)
		if err != nil {
			o.logger.Info("audit rejected", "url", u.String(), "engine", sel, "error", err)
			return nil, err
		}
	}

	target := engine.Target{
		URL:      u.String(),
		Language: locale.Match(req.Language),
	}
	if o.sites != nil {
		target.Headers = o.sites.Headers(u.Hostname())
	}

	resp := &model.Response{Usage: usage}
	// Running engines are never interrupted by the caller.
	runCtx := context.WithoutCancel(ctx)
	if sel.IsAll() {
		resp.Comparative = o.agg.Run(runCtx, target)
	} else {
		resp.Audit = o.single(runCtx, o.adapters[sel.Engine()], target)
	}

	if o.sink != nil {
		id, err := o.sink.Save(runCtx, resp)
		if err != nil {
			o.logger.Error("failed to save audit", "url", target.URL, "error", err)
		} else {
			resp.ID = id
		}
	}
	return resp, nil
}

func (o *Orchestrator) single(ctx context.Context, ad engine.Adapter, target engine.Target) (res *model.AuditResult) {
	e := ad.Engine()
	ts := o.now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			o.logger.Error("engine panicked", "engine", e, "url", target.URL, "error", err)
			res = FailureResult(target, e, ts, err)
		}
	}()

	res, err := ad.Run(ctx, target)
	if err != nil || res == nil {
		if err == nil {
			err = errors.New("engine returned no result")
		}
		o.logger.Warn("engine failed", "engine", e, "url", target.URL, "error", err)
		return FailureResult(target, e, ts, err)
	}
	o.logger.Info("audit finished", "engine", e, "url", target.URL, "violations", res.TotalViolations, "score", res.Score)
	return res
}

// FailureResult is the result of a failed single-engine audit: score 0 and
// one low-impact violation explaining the failure.
func FailureResult(target engine.Target, e model.Engine, ts time.Time, err error) *model.AuditResult {
	desc, rec := locale.EngineFailure(target.Language, e, err)
	v := model.Violation{
		RuleID:         string(e) + "-engine-failure",
		Criterion:      "1.1",
		Level:          model.LevelA,
		Impact:         model.ImpactLow,
		Description:    desc,
		Element:        "html",
		Recommendation: rec,
	}
	return model.NewAuditResult(target.URL, e, ts, []model.Violation{v}, 0,
		locale.FailureSummary(target.Language, e, err))
}
