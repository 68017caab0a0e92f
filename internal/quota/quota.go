// Package quota enforces per-plan audit limits configured in the
// .a11yscan file.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

// defaultPeriod is the usage period of plans that do not set one.
const defaultPeriod = 30 * 24 * time.Hour

// Checker checks and counts engine runs against plan limits.
type Checker struct {
	plans       map[string]config.PlanConfig
	defaultPlan string
	now         func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithClock sets the function used to start and expire usage periods.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDefaultPlan sets the plan of callers that did not send a snapshot.
func WithDefaultPlan(name string) Option {
	return func(c *Checker) {
		c.defaultPlan = name
	}
}

// NewChecker returns a Checker over the configured plans.
func NewChecker(plans map[string]config.PlanConfig, opts ...Option) *Checker {
	c := &Checker{
		plans: plans,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cost is the number of engine runs a selector consumes.
func Cost(sel model.EngineSelector) int {
	if sel.IsAll() {
		return len(model.Engines)
	}
	return 1
}

// Check admits or rejects a request and returns the updated usage.
// usage is never modified. A request without a plan, when no default plan
// is set, is admitted unmetered. Rejections wrap model.ErrQuotaExceeded, unknown
// plans wrap config.ErrUnknownPlan and model.ErrConfiguration.
func (c *Checker) Check(_ context.Context, usage *model.PlanUsageSnapshot, sel model.EngineSelector) (*model.PlanUsageSnapshot, error) {
	next := usage.Clone()
	if next == nil {
		next = &model.PlanUsageSnapshot{Plan: c.defaultPlan}
	}
	if next.Plan == "" {
		next.Plan = c.defaultPlan
	}
	// Callers without a plan are not metered.
	if next.Plan == "" {
		return next, nil
	}

	plan, ok := c.plans[next.Plan]
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", model.ErrConfiguration, config.ErrUnknownPlan, next.Plan)
	}

	now := c.now()
	period := defaultPeriod
	if plan.PeriodDays > 0 {
		period = time.Duration(plan.PeriodDays) * 24 * time.Hour
	}
	if next.PeriodStart.IsZero() || now.Sub(next.PeriodStart) >= period {
		next.PeriodStart = now
		next.AuditsUsed = 0
	}
	next.AuditsLimit = plan.AuditsLimit

	if sel.IsAll() && !plan.Comparative {
		return nil, fmt.Errorf("%w: plan %q does not include comparative audits", model.ErrQuotaExceeded, next.Plan)
	}
	cost := Cost(sel)
	if plan.AuditsLimit > 0 && next.AuditsUsed+cost > plan.AuditsLimit {
		return nil, fmt.Errorf("%w: plan %q used %d of %d engine runs", model.ErrQuotaExceeded, next.Plan, next.AuditsUsed, plan.AuditsLimit)
	}
	next.AuditsUsed += cost
	return next, nil
}

// PeriodFor returns the usage period of a plan.
func (c *Checker) PeriodFor(name string) time.Duration {
	if name == "" {
		name = c.defaultPlan
	}
	if plan, ok := c.plans[name]; ok && plan.PeriodDays > 0 {
		return time.Duration(plan.PeriodDays) * 24 * time.Hour
	}
	return defaultPeriod
}

// Ledger carries one caller's usage across several requests. It ignores the
// snapshot sent with each request and checks against its own, so concurrent
// audits of a batch cannot both spend the same remaining runs.
type Ledger struct {
	checker *Checker
	mu      sync.Mutex
	usage   *model.PlanUsageSnapshot
}

// NewLedger returns a Ledger starting from initial.
func NewLedger(checker *Checker, initial *model.PlanUsageSnapshot) *Ledger {
	return &Ledger{checker: checker, usage: initial.Clone()}
}

// Check admits or rejects a request against the ledger's usage.
func (l *Ledger) Check(ctx context.Context, _ *model.PlanUsageSnapshot, sel model.EngineSelector) (*model.PlanUsageSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := l.checker.Check(ctx, l.usage, sel)
	if err != nil {
		return nil, err
	}
	l.usage = next
	return next.Clone(), nil
}

// Usage returns a copy of the current usage.
func (l *Ledger) Usage() *model.PlanUsageSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage.Clone()
}
